package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lonestarmarket/backend/internal/crypto"
	"github.com/lonestarmarket/backend/internal/model"
	"github.com/lonestarmarket/backend/internal/repository"
)

// ModerationScorer rates a reported conversation 0-10.
type ModerationScorer interface {
	Score(ctx context.Context, reason, description string, excerpts []string) (float64, error)
}

type ReportService interface {
	Report(ctx context.Context, reporterID, conversationID, reason, description string) (*model.Report, error)
}

type reportService struct {
	chats   repository.ChatRepository
	reports repository.ReportRepository
	codec   *crypto.Codec
	scorer  ModerationScorer
}

// NewReportService builds the abuse-report flow. scorer may be nil, in
// which case reports are filed without a severity estimate.
func NewReportService(
	chats repository.ChatRepository,
	reports repository.ReportRepository,
	codec *crypto.Codec,
	scorer ModerationScorer,
) ReportService {
	return &reportService{chats: chats, reports: reports, codec: codec, scorer: scorer}
}

func (s *reportService) Report(ctx context.Context, reporterID, conversationID, reason, description string) (*model.Report, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, errValidation("reason is required")
	}
	cv, err := s.chats.FindByID(ctx, conversationID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if cv.Participant(reporterID) == nil {
		return nil, ErrNotParticipant
	}

	rep := &model.Report{
		ID:             uuid.NewString(),
		ConversationID: cv.ID,
		ReporterID:     reporterID,
		Reason:         reason,
		Description:    description,
		Status:         model.ReportOpen,
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		return nil, err
	}
	if err := s.chats.UpdateStatus(ctx, cv.ID, model.ConversationReported); err != nil {
		return nil, err
	}

	// Reported threads stay readable and writable; the flag only queues
	// them for moderation review. Scoring is best-effort and detached
	// from the request.
	if s.scorer != nil {
		go s.scoreReport(rep)
	}
	return rep, nil
}

func (s *reportService) scoreReport(rep *model.Report) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	msgs, err := s.chats.ListRecentMessages(ctx, rep.ConversationID, 10)
	if err != nil {
		log.Printf("[moderation] report %s: load messages: %v", rep.ID, err)
		return
	}
	var excerpts []string
	for _, m := range msgs {
		if m.Type != model.MessageText {
			continue
		}
		body := m.Body
		if m.IsEncrypted {
			body = s.codec.Decrypt(body)
		}
		excerpts = append(excerpts, body)
	}

	severity, err := s.scorer.Score(ctx, rep.Reason, rep.Description, excerpts)
	if err != nil {
		log.Printf("[moderation] report %s: score: %v", rep.ID, err)
		return
	}
	if err := s.reports.SetSeverity(ctx, rep.ID, severity); err != nil {
		log.Printf("[moderation] report %s: save severity: %v", rep.ID, err)
	}
}
