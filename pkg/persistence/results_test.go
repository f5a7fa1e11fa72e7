package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview/pkg/scoring"
	"interview/pkg/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "interview.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func finishedSession(t *testing.T) *session.State {
	t.Helper()
	sess := session.New("software engineer", 6)
	require.NoError(t, sess.SetCandidateName("Alex"))
	sess.SetFirstTime(true)
	sess.Append(session.SpeakerInterviewer, "Tell me about yourself.")
	sess.Append(session.SpeakerCandidate, "I'm a backend engineer.")
	sess.SetMetrics(session.RunningMetrics{Clarity: 7, Relevance: 8, Depth: 6, Samples: 6, Tier: session.TierGood})
	return sess
}

func TestSaveAndLoadResult(t *testing.T) {
	store := openTestStore(t)
	sess := finishedSession(t)
	ctx := context.Background()

	feedback := scoring.Feedback{
		OverallScore: 78,
		Strengths:    []string{"clear communication", "stays on topic"},
		Improvements: []string{"add concrete examples"},
		Narrative:    "Solid interview overall.",
	}
	require.NoError(t, store.SaveResult(ctx, sess, feedback))

	rec, err := store.GetSession(ctx, sess.ID())
	require.NoError(t, err)
	assert.Equal(t, "Alex", rec.CandidateName)
	assert.Equal(t, "software engineer", rec.Role)
	assert.Equal(t, 78, rec.OverallScore)
	assert.False(t, rec.FallbackScore)
	assert.Equal(t, string(session.TierGood), rec.Tier)
	assert.True(t, rec.FirstTime)

	transcript, err := store.GetTranscript(ctx, sess.ID())
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, session.SpeakerInterviewer, transcript[0].Speaker)
	assert.Equal(t, session.SpeakerCandidate, transcript[1].Speaker)

	strengths, improvements, err := store.GetFeedbackLabels(ctx, sess.ID())
	require.NoError(t, err)
	assert.Len(t, strengths, 2)
	assert.Len(t, improvements, 1)
}

func TestSaveResultDuplicateSessionFails(t *testing.T) {
	store := openTestStore(t)
	sess := finishedSession(t)
	ctx := context.Background()
	feedback := scoring.Feedback{OverallScore: 60, Narrative: "ok"}

	require.NoError(t, store.SaveResult(ctx, sess, feedback))
	assert.Error(t, store.SaveResult(ctx, sess, feedback), "duplicate session must violate the primary key")
}

func TestListSessionsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		sess := finishedSession(t)
		require.NoError(t, store.SaveResult(ctx, sess, scoring.Feedback{OverallScore: 50 + i, Narrative: "n"}))
	}

	records, err := store.ListSessions(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2, "limit should cap the result")
}

func TestGetSessionMissing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetSession(context.Background(), "nope")
	assert.Error(t, err)
}

func TestReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interview.db")

	store, err := Open(path)
	require.NoError(t, err)
	sess := finishedSession(t)
	require.NoError(t, store.SaveResult(context.Background(), sess, scoring.Feedback{OverallScore: 70, Narrative: "n"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	_, err = reopened.GetSession(context.Background(), sess.ID())
	assert.NoError(t, err, "data must survive reopen")
}
