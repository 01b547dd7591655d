package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"
	"time"

	"github.com/aretw0/rapport/pkg/adapters/memory"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/persistence/middleware"
	"github.com/aretw0/rapport/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func sampleResult(id string) *domain.Result {
	return &domain.Result{
		SessionID: id,
		Mode:      domain.ModeDynamic,
		Totals:    domain.Scores{Clarity: 6, Empathy: 4},
		Phase:     domain.PhaseCompleted,
		Transcript: []domain.ConversationTurn{
			{ID: "a1", Speaker: domain.SpeakerActor, Content: "What's your e-mail?"},
			{
				ID:       "u1",
				Speaker:  domain.SpeakerUser,
				Content:  "It's jo@example.com, or call +1 555 010 9999",
				Analysis: &domain.Analysis{Feedback: "Sharing jo@example.com was clear."},
			},
		},
		CompletedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	store := mw(underlying)

	ctx := context.Background()
	original := sampleResult("enc")
	require.NoError(t, store.Save(ctx, "enc", original))

	stored, err := underlying.Load(ctx, "enc")
	require.NoError(t, err)
	assert.Empty(t, stored.Transcript)
	assert.NotEmpty(t, stored.Sealed)
	assert.Equal(t, original.Totals, stored.Totals, "scores stay readable")
	assert.Len(t, original.Transcript, 2, "caller result untouched")

	loaded, err := store.Load(ctx, "enc")
	require.NoError(t, err)
	assert.Empty(t, loaded.Sealed)
	assert.Equal(t, original.Transcript, loaded.Transcript)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	oldMW, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, err)
	require.NoError(t, oldMW(underlying).Save(ctx, "rot", sampleResult("rot")))

	strict, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: newKey})
	require.NoError(t, err)
	_, err = strict(underlying).Load(ctx, "rot")
	assert.Error(t, err)

	rotated, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	require.NoError(t, err)
	loaded, err := rotated(underlying).Load(ctx, "rot")
	require.NoError(t, err)
	assert.Len(t, loaded.Transcript, 2)
}

func TestEncryptionMiddleware_RejectsPlainResults(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, "plain", sampleResult("plain")))

	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	_, err = mw(underlying).Load(ctx, "plain")
	assert.ErrorIs(t, err, middleware.ErrNotSealed)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)
	require.NoError(t, err)
	store := mw(underlying)

	ctx := context.Background()
	original := sampleResult("pii")
	require.NoError(t, store.Save(ctx, "pii", original))

	assert.Contains(t, original.Transcript[1].Content, "jo@example.com", "caller result untouched")
	assert.Contains(t, original.Transcript[1].Analysis.Feedback, "jo@example.com")

	stored, err := underlying.Load(ctx, "pii")
	require.NoError(t, err)
	assert.Equal(t, "What's your e-mail?", stored.Transcript[0].Content)
	assert.Equal(t, "It's ***, or call ***", stored.Transcript[1].Content)
	assert.Equal(t, "Sharing *** was clear.", stored.Transcript[1].Analysis.Feedback)
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain_Contract(t *testing.T) {
	redact, err := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)
	require.NoError(t, err)
	encrypt, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	tests.RunResultStoreContract(t, middleware.Chain(memory.NewStore(), redact, encrypt))
}

func TestChain_RedactsBeforeSealing(t *testing.T) {
	underlying := memory.NewStore()
	redact, err := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)
	require.NoError(t, err)
	encrypt, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	store := middleware.Chain(underlying, redact, encrypt)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "both", sampleResult("both")))

	loaded, err := store.Load(ctx, "both")
	require.NoError(t, err)
	assert.Equal(t, "It's ***, or call ***", loaded.Transcript[1].Content)
}
