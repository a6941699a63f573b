package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterPolicy_AdmitsOrdinaryPost(t *testing.T) {
	policy := DefaultFilterPolicy()
	assert.True(t, policy.Admit(PostEnvelope{Text: "these shoes are really comfortable for long runs"}))
}

func TestFilterPolicy_RejectsTooShort(t *testing.T) {
	policy := DefaultFilterPolicy()
	assert.False(t, policy.Admit(PostEnvelope{Text: "meh"}))
}

func TestFilterPolicy_RejectsRemovalPlaceholders(t *testing.T) {
	policy := DefaultFilterPolicy()
	assert.False(t, policy.Admit(PostEnvelope{Text: "[deleted]"}))
	assert.False(t, policy.Admit(PostEnvelope{Text: "[removed]"}))
	assert.False(t, policy.Admit(PostEnvelope{Text: "  [deleted by user]  "}))
}

func TestFilterPolicy_RejectsLinkOnlyPosts(t *testing.T) {
	policy := DefaultFilterPolicy()
	assert.False(t, policy.Admit(PostEnvelope{Text: "https://example.com/some-long-link-path"}))
}

func TestFilterPolicy_AdmitsLinkWithCommentary(t *testing.T) {
	policy := DefaultFilterPolicy()
	assert.True(t, policy.Admit(PostEnvelope{Text: "check this out https://example.com great review"}))
}

func TestFilterPolicy_CustomMinBodyLength(t *testing.T) {
	policy := FilterPolicy{MinBodyLength: 3}
	assert.True(t, policy.Admit(PostEnvelope{Text: "meh"}))
}
