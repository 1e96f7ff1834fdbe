package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentStatusTransitions(t *testing.T) {
	allowed := map[[2]DocumentStatus]bool{
		{DocumentPending, DocumentProcessing}:   true,
		{DocumentPending, DocumentProcessed}:    true,
		{DocumentPending, DocumentFailed}:       true,
		{DocumentProcessing, DocumentProcessed}: true,
		{DocumentProcessing, DocumentFailed}:    true,
	}
	all := []DocumentStatus{DocumentPending, DocumentProcessing, DocumentProcessed, DocumentFailed}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]DocumentStatus{from, to}]
			assert.Equalf(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.False(t, DocumentPending.CanTransitionTo("archived"))
	assert.False(t, DocumentStatus("archived").Valid())
	assert.True(t, DocumentFailed.Terminal())
	assert.False(t, DocumentProcessing.Terminal())
}
