package proc

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
)

// DevServer is a running dev-server bound to one session.
type DevServer struct {
	SessionID string
	Port      int
	cmd       *exec.Cmd
}

// DevServerManager owns at most one dev-server per session and the
// process-scoped port allocator. Servers persist across requests and
// stop only on explicit teardown.
type DevServerManager struct {
	mu       sync.Mutex
	basePort int
	nextPort int
	servers  map[string]*DevServer
}

// NewDevServerManager allocates ports starting at basePort.
func NewDevServerManager(basePort int) *DevServerManager {
	return &DevServerManager{
		basePort: basePort,
		nextPort: basePort,
		servers:  make(map[string]*DevServer),
	}
}

// Start launches a dev-server for the session, or returns the existing
// port if one is already running.
func (m *DevServerManager) Start(sessionID, workspaceDir string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if srv, ok := m.servers[sessionID]; ok {
		return srv.Port, nil
	}

	port := m.nextPort
	m.nextPort++

	cmd := exec.Command("npm", "run", "dev", "--", "--port", strconv.Itoa(port), "--host")
	cmd.Dir = workspaceDir
	cmd.Env = append(os.Environ(), "BROWSER=none")
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start dev server: %w", err)
	}

	srv := &DevServer{SessionID: sessionID, Port: port, cmd: cmd}
	m.servers[sessionID] = srv

	// Reap the process when it exits on its own so Stop doesn't leak.
	go func() {
		_ = cmd.Wait()
		m.mu.Lock()
		if cur, ok := m.servers[sessionID]; ok && cur == srv {
			delete(m.servers, sessionID)
		}
		m.mu.Unlock()
	}()

	slog.Info("Dev server started", "session_id", sessionID, "port", port)
	return port, nil
}

// Port returns the running port for a session, 0 when none.
func (m *DevServerManager) Port(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if srv, ok := m.servers[sessionID]; ok {
		return srv.Port
	}
	return 0
}

// Stop terminates the session's dev-server if one is running.
func (m *DevServerManager) Stop(sessionID string) {
	m.mu.Lock()
	srv, ok := m.servers[sessionID]
	delete(m.servers, sessionID)
	m.mu.Unlock()
	if !ok {
		return
	}
	if srv.cmd.Process != nil {
		_ = srv.cmd.Process.Kill()
	}
	slog.Info("Dev server stopped", "session_id", sessionID, "port", srv.Port)
}

// StopAll terminates every running dev-server (process shutdown).
func (m *DevServerManager) StopAll() {
	m.mu.Lock()
	servers := make([]*DevServer, 0, len(m.servers))
	for _, srv := range m.servers {
		servers = append(servers, srv)
	}
	m.servers = make(map[string]*DevServer)
	m.mu.Unlock()
	for _, srv := range servers {
		if srv.cmd.Process != nil {
			_ = srv.cmd.Process.Kill()
		}
	}
}
