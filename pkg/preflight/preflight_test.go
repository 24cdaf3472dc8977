package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSpecifiers(t *testing.T) {
	source := `
import React from 'react'
import { useState } from "react"
import './styles.css'
export { Button } from './components/Button'
const mod = await import('./lazy')
import logo from "./assets/logo.svg"
`
	specs := ExtractSpecifiers(source)
	assert.Contains(t, specs, "react")
	assert.Contains(t, specs, "./styles.css")
	assert.Contains(t, specs, "./components/Button")
	assert.Contains(t, specs, "./lazy")
	assert.Contains(t, specs, "./assets/logo.svg")
}

func TestPackageRoot(t *testing.T) {
	assert.Equal(t, "react", PackageRoot("react"))
	assert.Equal(t, "lodash", PackageRoot("lodash/merge"))
	assert.Equal(t, "@radix-ui/react-dialog", PackageRoot("@radix-ui/react-dialog"))
	assert.Equal(t, "@scope/pkg", PackageRoot("@scope/pkg/sub/path"))
}

func TestChecker_BarePackages(t *testing.T) {
	c := &Checker{Installed: map[string]bool{"react": true}}

	check := c.Run("src/App.tsx", `import React from 'react'`)
	assert.True(t, check.OK())

	check = c.Run("src/App.tsx", `import { motion } from 'framer-motion'`)
	require.False(t, check.OK())
	assert.Equal(t, []string{"framer-motion"}, check.MissingPackages)
}

func TestChecker_RelativeOnDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "components"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "components", "Button.tsx"), []byte("export function Button() {}"), 0o644))

	c := &Checker{SessionDir: dir}
	check := c.Run("src/App.tsx", `import { Button } from './components/Button'`)
	assert.True(t, check.OK())

	check = c.Run("src/App.tsx", `import { Card } from './components/Card'`)
	require.False(t, check.OK())
	assert.Equal(t, []string{"./components/Card"}, check.MissingImports)
}

func TestChecker_RelativeIndexResolution(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "hooks"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "hooks", "index.ts"), []byte("export {}"), 0o644))

	c := &Checker{SessionDir: dir}
	check := c.Run("src/App.tsx", `import { useThing } from './hooks'`)
	assert.True(t, check.OK())
}

func TestChecker_PlannedPathsSatisfy(t *testing.T) {
	c := &Checker{
		SessionDir:   t.TempDir(),
		PlannedPaths: map[string]bool{"src/Header.tsx": true},
	}
	check := c.Run("src/App.tsx", `import { Header } from './Header'`)
	assert.True(t, check.OK())
}

func TestChecker_IgnoresAbsoluteAndURLs(t *testing.T) {
	c := &Checker{}
	check := c.Run("src/App.tsx", `
import x from '/absolute/thing'
import y from 'https://esm.sh/react'
`)
	assert.True(t, check.OK())
}

func TestInstalledPackages(t *testing.T) {
	dir := t.TempDir()
	manifest := `{
  "dependencies": {"react": "^18.0.0", "@radix-ui/react-dialog": "^1.0.0"},
  "devDependencies": {"typescript": "^5.0.0"}
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifest), 0o644))

	installed, err := InstalledPackages(dir)
	require.NoError(t, err)
	assert.True(t, installed["react"])
	assert.True(t, installed["@radix-ui/react-dialog"])
	assert.True(t, installed["typescript"])
	assert.False(t, installed["vue"])
}

func TestInstalledPackages_MissingManifest(t *testing.T) {
	installed, err := InstalledPackages(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, installed)
}

func TestFeedbackPrompt(t *testing.T) {
	check := &Check{
		MissingPackages: []string{"framer-motion"},
		MissingImports:  []string{"./B"},
	}
	prompt := FeedbackPrompt(check)
	assert.Contains(t, prompt, "framer-motion")
	assert.Contains(t, prompt, "./B")
}
