package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lonestarmarket/backend/internal/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeReportRepo struct {
	mu       sync.Mutex
	reports  map[string]*model.Report
	severity chan float64
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{
		reports:  map[string]*model.Report{},
		severity: make(chan float64, 1),
	}
}

func (f *fakeReportRepo) Create(_ context.Context, rep *model.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rep
	f.reports[rep.ID] = &cp
	return nil
}

func (f *fakeReportRepo) SetSeverity(_ context.Context, id string, severity float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rep, ok := f.reports[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	rep.Severity = &severity
	f.severity <- severity
	return nil
}

func (f *fakeReportRepo) SetDB(*gorm.DB) {}

type fakeScorer struct {
	mu       sync.Mutex
	excerpts []string
	score    float64
}

func (f *fakeScorer) Score(_ context.Context, _, _ string, excerpts []string) (float64, error) {
	f.mu.Lock()
	f.excerpts = excerpts
	f.mu.Unlock()
	return f.score, nil
}

func TestReportConversation(t *testing.T) {
	fx := newChatFixture(t)
	ctx := context.Background()

	cv, err := fx.svc.CreateChat(ctx, "alice", CreateChatInput{RecipientID: "bob"})
	require.NoError(t, err)
	_, err = fx.svc.SendMessage(ctx, "bob", cv.ID, SendMessageInput{Text: "pay outside the app"})
	require.NoError(t, err)

	reports := newFakeReportRepo()
	scorer := &fakeScorer{score: 7.5}
	svc := NewReportService(fx.repo, reports, fx.codec, scorer)

	rep, err := svc.Report(ctx, "alice", cv.ID, "scam", "asked me to pay off-platform")
	require.NoError(t, err)
	require.Equal(t, model.ReportOpen, rep.Status)
	require.Nil(t, rep.Severity)

	// Filing flags the thread but keeps it usable.
	cvAfter, err := fx.svc.GetConversation(ctx, "alice", cv.ID)
	require.NoError(t, err)
	require.Equal(t, model.ConversationReported, cvAfter.Status)
	_, err = fx.svc.SendMessage(ctx, "alice", cv.ID, SendMessageInput{Text: "still works"})
	require.NoError(t, err)

	// Scoring runs detached; the scorer sees decrypted excerpts.
	select {
	case sev := <-reports.severity:
		require.Equal(t, 7.5, sev)
	case <-time.After(2 * time.Second):
		t.Fatal("severity was never recorded")
	}
	scorer.mu.Lock()
	require.Contains(t, scorer.excerpts, "pay outside the app")
	scorer.mu.Unlock()
}

func TestReportValidation(t *testing.T) {
	fx := newChatFixture(t)
	ctx := context.Background()

	cv, err := fx.svc.CreateChat(ctx, "alice", CreateChatInput{RecipientID: "bob"})
	require.NoError(t, err)

	svc := NewReportService(fx.repo, newFakeReportRepo(), fx.codec, nil)

	_, err = svc.Report(ctx, "alice", cv.ID, "  ", "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Report(ctx, "carol", cv.ID, "spam", "")
	require.ErrorIs(t, err, ErrNotParticipant)

	_, err = svc.Report(ctx, "alice", "no-such-thread", "spam", "")
	require.ErrorIs(t, err, ErrNotFound)

	// No scorer configured: the report files without a severity.
	rep, err := svc.Report(ctx, "alice", cv.ID, "spam", "unsolicited ads")
	require.NoError(t, err)
	require.Nil(t, rep.Severity)
}
