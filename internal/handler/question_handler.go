package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ytqa/internal/model"
	"github.com/xxxsen/ytqa/internal/pkg/errcode"
	"github.com/xxxsen/ytqa/internal/pkg/response"
	"github.com/xxxsen/ytqa/internal/pkg/timestamp"
	"github.com/xxxsen/ytqa/internal/service"
)

const maxQuestionsPerRequest = 100

type ICurrentSession interface {
	Current(ctx context.Context) (*model.Session, error)
}

type IQuestionRunner interface {
	RunBatch(ctx context.Context, sess *model.Session, questions []string, progress service.ProgressFunc) []model.BatchResult
	RunInterconnected(ctx context.Context, sess *model.Session, questions []string, progress service.ProgressFunc) []model.BatchResult
}

type IHistoryLister interface {
	List() []model.QAPair
}

type IContextReader interface {
	Context(timestamps []string, maxChars int) string
}

type IResultSaver interface {
	Save(ctx context.Context, runID string, results []model.BatchResult) ([]string, error)
}

type QuestionHandler struct {
	sessions     ICurrentSession
	runner       IQuestionRunner
	history      IHistoryLister
	transcripts  IContextReader
	results      IResultSaver
	contextChars int
}

func NewQuestionHandler(
	sessions ICurrentSession,
	runner IQuestionRunner,
	history IHistoryLister,
	transcripts IContextReader,
	results IResultSaver,
	contextChars int,
) *QuestionHandler {
	return &QuestionHandler{
		sessions:     sessions,
		runner:       runner,
		history:      history,
		transcripts:  transcripts,
		results:      results,
		contextChars: contextChars,
	}
}

type askRequest struct {
	Questions      []string `json:"questions"`
	Interconnected bool     `json:"interconnected"`
}

type askResponse struct {
	RunID   string              `json:"run_id"`
	Results []model.BatchResult `json:"results"`
	Files   []string            `json:"files,omitempty"`
}

func (h *QuestionHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if len(req.Questions) == 0 || len(req.Questions) > maxQuestionsPerRequest {
		response.Error(c, errcode.ErrInvalid, "questions must hold 1 to 100 entries")
		return
	}
	// results line up with the request, so a blank entry fails the whole call
	questions := make([]string, 0, len(req.Questions))
	for i, q := range req.Questions {
		q = strings.TrimSpace(q)
		if q == "" {
			response.Error(c, errcode.ErrInvalid, "questions["+strconv.Itoa(i)+"] is blank")
			return
		}
		questions = append(questions, q)
	}
	ctx := c.Request.Context()
	sess, err := h.sessions.Current(ctx)
	if err != nil {
		handleError(c, err)
		return
	}
	var results []model.BatchResult
	if req.Interconnected {
		results = h.runner.RunInterconnected(ctx, sess, questions, nil)
	} else {
		results = h.runner.RunBatch(ctx, sess, questions, nil)
	}
	resp := askResponse{RunID: uuid.NewString(), Results: results}
	if h.results != nil {
		files, err := h.results.Save(ctx, resp.RunID, results)
		if err != nil {
			logutil.GetLogger(ctx).Warn("save results failed", zap.String("run_id", resp.RunID), zap.Error(err))
		}
		resp.Files = files
	}
	response.Success(c, resp)
}

func (h *QuestionHandler) History(c *gin.Context) {
	pairs := h.history.List()
	for i := range pairs {
		pairs[i].Embedding = nil
	}
	response.Success(c, gin.H{"items": pairs})
}

func (h *QuestionHandler) Context(c *gin.Context) {
	maxChars := h.contextChars
	if raw := c.Query("max_chars"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			response.Error(c, errcode.ErrInvalid, "invalid max_chars")
			return
		}
		maxChars = v
	}
	var stamps []string
	if raw := strings.TrimSpace(c.Query("timestamps")); raw != "" {
		for _, item := range strings.Split(raw, ",") {
			ts, ok := timestamp.Normalize(item)
			if !ok {
				response.Error(c, errcode.ErrInvalid, "invalid timestamp: "+strings.TrimSpace(item))
				return
			}
			stamps = append(stamps, ts)
		}
	}
	response.Success(c, gin.H{"context": h.transcripts.Context(stamps, maxChars)})
}
