package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/appforge/forge/pkg/models"
)

func validRequest() *ChatRequest {
	return &ChatRequest{
		Messages: []models.ClientMessage{
			{ID: "1", Role: models.RoleUser, Content: "create a landing page"},
		},
	}
}

func TestValidateChatRequest_Valid(t *testing.T) {
	assert.NoError(t, ValidateChatRequest(validRequest()))
}

func TestValidateChatRequest_EmptyMessages(t *testing.T) {
	assert.Error(t, ValidateChatRequest(&ChatRequest{}))
}

func TestValidateChatRequest_EmptyContent(t *testing.T) {
	req := validRequest()
	req.Messages[0].Content = ""
	assert.Error(t, ValidateChatRequest(req))
}

func TestValidateChatRequest_ContentTooLong(t *testing.T) {
	req := validRequest()
	req.Messages[0].Content = strings.Repeat("x", models.MaxContentLength+1)
	assert.Error(t, ValidateChatRequest(req))
}

func TestValidateChatRequest_TooManyMessages(t *testing.T) {
	req := &ChatRequest{}
	for i := 0; i <= models.MaxMessages; i++ {
		req.Messages = append(req.Messages, models.ClientMessage{Role: models.RoleUser, Content: "hi there"})
	}
	assert.Error(t, ValidateChatRequest(req))
}

func TestValidateChatRequest_InvalidRole(t *testing.T) {
	req := validRequest()
	req.Messages[0].Role = "system"
	assert.Error(t, ValidateChatRequest(req))
}

func TestValidateChatRequest_NoUserMessage(t *testing.T) {
	req := &ChatRequest{
		Messages: []models.ClientMessage{
			{Role: models.RoleAssistant, Content: "hello, how can I help?"},
		},
	}
	assert.Error(t, ValidateChatRequest(req))
}
