package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/edgelog/internal/analytics"
	"github.com/edgelog/internal/config"
	"github.com/edgelog/internal/metrics"
	"github.com/edgelog/internal/models"
	"github.com/edgelog/internal/provider"
	"github.com/edgelog/internal/provider/openai"
	"github.com/edgelog/internal/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrAIRateLimited is returned when a user exceeds their AI request budget
	ErrAIRateLimited   = errors.New("too many AI requests, slow down")
	ErrBadConversation = errors.New("conversation must end with a user message")
)

// mentorHistory is the number of conversation turns forwarded to the model
const mentorHistory = 20

const (
	analystPrompt = "You are a trading performance analyst. You receive JSON statistics " +
		"computed from a trader's own journal. R is profit in multiples of initial risk. " +
		"Identify the strongest edge, the most expensive mistakes and three concrete actions. " +
		"Only use numbers present in the statistics."
	mentorPrompt = "You are an experienced trading mentor. Be direct and practical. " +
		"Ground advice in the trader's statistics below when they are relevant, and say so " +
		"when the sample is too small to conclude anything.\n\nStatistics:\n"
	coproPrompt = "You are a pre-trade co-pilot. Critique the planned trade against the " +
		"trader's historical results for the same setup, grade and session. Give a verdict " +
		"of TAKE, REDUCE SIZE or SKIP on the first line, followed by short reasons."
)

// AIService turns journal statistics into LLM prompts
type AIService struct {
	chat      openai.ChatCompleter
	analytics *AnalyticsService
	setups    *SetupService
	limit     rate.Limit
	burst     int
	metrics   *metrics.Metrics
	logger    *zap.Logger

	// idle is how long a limiter may go unused before it is dropped. It is
	// never shorter than a full refill, so a dropped limiter had a full bucket.
	idle time.Duration
	now  func() time.Time

	mu        sync.Mutex
	limiters  map[uint]*userLimiter
	lastSweep time.Time
}

type userLimiter struct {
	*rate.Limiter
	lastSeen time.Time
}

// NewAIService creates a new AIService
func NewAIService(
	chat openai.ChatCompleter,
	analyticsService *AnalyticsService,
	setupService *SetupService,
	cfg config.AIConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *AIService {
	perMinute := cfg.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = 10
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 3
	}
	idle := 10 * time.Minute
	if refill := time.Duration(burst) * time.Minute / time.Duration(perMinute); refill > idle {
		idle = refill
	}
	return &AIService{
		chat:      chat,
		analytics: analyticsService,
		setups:    setupService,
		limit:     rate.Limit(float64(perMinute) / 60),
		burst:     burst,
		metrics:   m,
		logger:    logger,
		idle:      idle,
		now:       time.Now,
		limiters:  make(map[uint]*userLimiter),
	}
}

// limiter returns the user's limiter, sweeping idle ones at most once per
// idle period.
func (s *AIService) limiter(userID uint) *rate.Limiter {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= s.idle {
		for id, l := range s.limiters {
			if now.Sub(l.lastSeen) >= s.idle {
				delete(s.limiters, id)
			}
		}
		s.lastSweep = now
	}

	l, ok := s.limiters[userID]
	if !ok {
		l = &userLimiter{Limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[userID] = l
	}
	l.lastSeen = now
	return l.Limiter
}

// AIReply is a model answer returned to the client
type AIReply struct {
	Content string       `json:"content"`
	Model   string       `json:"model"`
	Usage   openai.Usage `json:"usage"`
}

// complete runs one chat call under the user's rate limit, with a span and
// request metrics named after endpoint.
func (s *AIService) complete(ctx context.Context, userID uint, endpoint string, messages []openai.Message) (*AIReply, error) {
	if !s.limiter(userID).Allow() {
		s.metrics.RecordAI(endpoint, "rate_limited", 0)
		return nil, ErrAIRateLimited
	}

	ctx, span := trace.StartSpan(ctx, "ai."+endpoint)
	defer span.End()
	span.SetAttributes(attribute.Int("user.id", int(userID)))

	start := time.Now()
	resp, err := s.chat.Complete(ctx, openai.ChatRequest{Messages: messages})
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		status := "error"
		if code, ok := provider.StatusOf(err); ok {
			status = fmt.Sprintf("%d", code)
		}
		s.metrics.RecordAI(endpoint, status, elapsed)
		s.logger.Warn("ai request failed",
			zap.String("endpoint", endpoint),
			zap.Uint("user_id", userID),
			zap.Error(err))
		return nil, err
	}

	s.metrics.RecordAI(endpoint, "ok", elapsed)
	return &AIReply{Content: resp.Content, Model: resp.Model, Usage: resp.Usage}, nil
}

// TestConnection checks that the provider answers with the configured key
func (s *AIService) TestConnection(ctx context.Context, userID uint) (*AIReply, error) {
	return s.complete(ctx, userID, "test-openai", []openai.Message{
		{Role: "user", Content: "Reply with the single word OK."},
	})
}

// AnalyzeRequest asks for a written review of the filtered journal
type AnalyzeRequest struct {
	Filter   analytics.Filter `json:"filter"`
	Question string           `json:"question" binding:"max=1000"`
}

type analysisContext struct {
	Edge     analytics.EdgeStats     `json:"edge"`
	Mistakes analytics.MistakeReport `json:"mistakes"`
	Setups   []setupSummary          `json:"setups"`
}

type setupSummary struct {
	Setup      string  `json:"setup"`
	Trades     int     `json:"trades"`
	WinRate    float64 `json:"win_rate"`
	Expectancy float64 `json:"expectancy"`
}

// AnalyzeTrades reviews the user's edge and mistakes
func (s *AIService) AnalyzeTrades(ctx context.Context, userID uint, req *AnalyzeRequest) (*AIReply, error) {
	edge, err := s.analytics.Edge(ctx, userID, req.Filter)
	if err != nil {
		return nil, err
	}
	mistakes, err := s.analytics.Mistakes(ctx, userID, req.Filter)
	if err != nil {
		return nil, err
	}
	matrix, err := s.analytics.Setups(ctx, userID, req.Filter)
	if err != nil {
		return nil, err
	}

	stats := analysisContext{Edge: edge, Mistakes: mistakes}
	for _, row := range matrix.Rows {
		stats.Setups = append(stats.Setups, setupSummary{
			Setup:      row.Setup,
			Trades:     row.Edge.TotalTrades,
			WinRate:    row.Edge.WinRate,
			Expectancy: row.Edge.Expectancy,
		})
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return nil, err
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		question = "Review my trading performance."
	}
	return s.complete(ctx, userID, "analyze-trades", []openai.Message{
		{Role: "system", Content: analystPrompt},
		{Role: "user", Content: question + "\n\nStatistics:\n" + string(data)},
	})
}

// MentorRequest is a conversation with the mentor
type MentorRequest struct {
	Messages []openai.Message `json:"messages" binding:"required,min=1,max=50,dive"`
}

// Mentor continues a conversation with the user's statistics as context.
// Only user and assistant turns are accepted from the client.
func (s *AIService) Mentor(ctx context.Context, userID uint, req *MentorRequest) (*AIReply, error) {
	history := make([]openai.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		history = append(history, m)
	}
	if len(history) == 0 || history[len(history)-1].Role != "user" {
		return nil, ErrBadConversation
	}
	if len(history) > mentorHistory {
		history = history[len(history)-mentorHistory:]
	}

	edge, err := s.analytics.Edge(ctx, userID, analytics.Filter{})
	if err != nil {
		return nil, err
	}
	psych, err := s.analytics.Psychology(ctx, userID, analytics.Filter{})
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(map[string]interface{}{"edge": edge, "psychology": psych})
	if err != nil {
		return nil, err
	}

	messages := append([]openai.Message{{Role: "system", Content: mentorPrompt + string(data)}}, history...)
	return s.complete(ctx, userID, "ai-mentor", messages)
}

// CoproRequest describes a trade the user is about to take
type CoproRequest struct {
	Symbol    string           `json:"symbol" binding:"required,max=20"`
	Direction models.Direction `json:"direction" binding:"required,oneof=long short"`
	SetupID   *uint            `json:"setup_id"`
	Setup     string           `json:"setup" binding:"max=100"`
	Grade     string           `json:"grade"`
	Session   string           `json:"session" binding:"omitempty,oneof=asia london new_york off_hours"`
	Entry     float64          `json:"entry" binding:"required,gt=0"`
	Stop      float64          `json:"stop" binding:"required,gt=0"`
	Target    float64          `json:"target" binding:"omitempty,gt=0"`
	Notes     string           `json:"notes" binding:"max=2000"`
}

type coproContext struct {
	Plan         *CoproRequest        `json:"plan"`
	PlannedRR    float64              `json:"planned_rr,omitempty"`
	SetupEdge    *analytics.EdgeStats `json:"setup_edge,omitempty"`
	GradeEdge    *analytics.EdgeStats `json:"grade_edge,omitempty"`
	SessionEdge  *analytics.EdgeStats `json:"session_edge,omitempty"`
	OverallEdge  analytics.EdgeStats  `json:"overall_edge"`
	SetupUnknown bool                 `json:"setup_unknown,omitempty"`
}

// CoproAnalyze critiques a planned trade against the user's history with
// the same setup.
func (s *AIService) CoproAnalyze(ctx context.Context, userID uint, req *CoproRequest) (*AIReply, error) {
	switch req.Grade {
	case "", models.GradeAPlus, models.GradeA, models.GradeB, models.GradeC:
	default:
		return nil, ErrInvalidGrade
	}
	if req.Entry == req.Stop {
		return nil, models.ErrZeroRisk
	}
	if req.SetupID != nil {
		setup, err := s.setups.GetSetup(userID, *req.SetupID)
		if err != nil {
			return nil, err
		}
		req.Setup = setup.Name
	}

	stats := coproContext{Plan: req}
	if req.Target > 0 {
		stats.PlannedRR = plannedRR(req.Direction, req.Entry, req.Stop, req.Target)
	}

	overall, err := s.analytics.Edge(ctx, userID, analytics.Filter{})
	if err != nil {
		return nil, err
	}
	stats.OverallEdge = overall

	if req.Setup != "" {
		matrix, err := s.analytics.Setups(ctx, userID, analytics.Filter{})
		if err != nil {
			return nil, err
		}
		stats.SetupUnknown = true
		for _, row := range matrix.Rows {
			if !strings.EqualFold(row.Setup, req.Setup) {
				continue
			}
			stats.SetupUnknown = false
			edge := row.Edge
			stats.SetupEdge = &edge
			for _, cell := range row.Cells {
				if req.Grade != "" && cell.Grade == req.Grade {
					g := cell.Edge
					stats.GradeEdge = &g
				}
			}
		}
	}

	if req.Session != "" {
		edge, err := s.analytics.Edge(ctx, userID, analytics.Filter{Sessions: []string{req.Session}})
		if err != nil {
			return nil, err
		}
		stats.SessionEdge = &edge
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, userID, "ai-copro-analyzer", []openai.Message{
		{Role: "system", Content: coproPrompt},
		{Role: "user", Content: string(data)},
	})
}

// plannedRR is the reward-to-risk of a target relative to the stop
func plannedRR(dir models.Direction, entry, stop, target float64) float64 {
	risk := entry - stop
	reward := target - entry
	if dir == models.DirectionShort {
		risk, reward = -risk, -reward
	}
	if risk <= 0 {
		return 0
	}
	return float64(int(reward/risk*100+0.5)) / 100
}
