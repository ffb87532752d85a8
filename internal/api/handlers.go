package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clinical-scoring-server/internal/audit"
	"github.com/clinical-scoring-server/internal/domain"
	"github.com/clinical-scoring-server/internal/scoring"
)

// assessRequest is the body of a full assessment request. A nil confidence
// selects the profile default.
type assessRequest struct {
	Indicators map[string]float64 `json:"indicators" binding:"required"`
	Confidence *float64           `json:"confidence"`
}

// screenRequest is the body of a screening request carrying a single
// headline value.
type screenRequest struct {
	Value      float64  `json:"value"`
	Confidence *float64 `json:"confidence"`
}

// assessmentResponse wraps a stored result with its audit ID.
type assessmentResponse struct {
	ID     string             `json:"id,omitempty"`
	Result *scoring.ResultDTO `json:"result"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"profiles":  s.engine.Profiles(),
	})
}

func (s *Server) handleListProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"profiles": s.engine.Profiles()})
}

func (s *Server) handleAssess(c *gin.Context) {
	var req assessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, domain.ErrCodeValidation, err.Error())
		return
	}

	confidence := scoring.ConfidenceDefault
	if req.Confidence != nil {
		confidence = *req.Confidence
	}

	result, err := s.engine.Assess(c.Param("profile"), req.Indicators, confidence)
	if err != nil {
		s.writeMappedError(c, err)
		return
	}

	id := s.record(c, result)
	c.JSON(http.StatusOK, assessmentResponse{ID: id, Result: result.DTO()})
}

func (s *Server) handleScreen(c *gin.Context) {
	var req screenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, domain.ErrCodeValidation, err.Error())
		return
	}

	confidence := scoring.ConfidenceDefault
	if req.Confidence != nil {
		confidence = *req.Confidence
	}

	result, err := s.engine.Screen(c.Param("profile"), req.Value, confidence)
	if err != nil {
		s.writeMappedError(c, err)
		return
	}

	id := s.record(c, result)
	c.JSON(http.StatusOK, assessmentResponse{ID: id, Result: result.DTO()})
}

// handleParse accepts any supported input shape as a raw JSON body and runs
// it through the permissive parse façade.
func (s *Server) handleParse(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.writeError(c, http.StatusBadRequest, domain.ErrCodeValidation, "failed to read request body")
		return
	}

	outcome := s.engine.Parse(c.Param("profile"), body)
	if !outcome.OK {
		s.writeMappedError(c, outcome.Err)
		return
	}

	c.JSON(http.StatusOK, assessmentResponse{Result: outcome.Result.DTO()})
}

// handleGetAssessment serves a stored record, reading through the optional
// record cache: a hit skips the store, a miss populates the cache.
func (s *Server) handleGetAssessment(c *gin.Context) {
	id := c.Param("id")

	if s.recordCache != nil {
		cached, hit, err := s.recordCache.Get(c.Request.Context(), id)
		if err != nil {
			s.logger.WithError(err).Warn("Record cache lookup failed")
		} else if hit {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	record, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load assessment record")
		s.writeError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer, "failed to load assessment")
		return
	}
	if record == nil {
		s.writeError(c, http.StatusNotFound, domain.ErrCodeNotFound, "assessment not found")
		return
	}

	s.cacheRecord(c, record)
	c.JSON(http.StatusOK, record)
}

// handleDeleteAssessment removes a stored record and drops its cache entry.
func (s *Server) handleDeleteAssessment(c *gin.Context) {
	id := c.Param("id")

	record, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load assessment record")
		s.writeError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer, "failed to load assessment")
		return
	}
	if record == nil {
		s.writeError(c, http.StatusNotFound, domain.ErrCodeNotFound, "assessment not found")
		return
	}

	if err := s.store.Delete(c.Request.Context(), id); err != nil {
		s.logger.WithError(err).Error("Failed to delete assessment record")
		s.writeError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer, "failed to delete assessment")
		return
	}

	if s.recordCache != nil {
		if err := s.recordCache.Invalidate(c.Request.Context(), id); err != nil {
			s.logger.WithError(err).Warn("Failed to invalidate cached record")
		}
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) handleListAssessments(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	records, err := s.store.List(c.Request.Context(), c.Query("profile"), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list assessment records")
		s.writeError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer, "failed to list assessments")
		return
	}

	total, err := s.store.Count(c.Request.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to count assessment records")
		s.writeError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer, "failed to count assessments")
		return
	}

	if records == nil {
		records = []*audit.Record{}
	}
	c.JSON(http.StatusOK, gin.H{
		"assessments": records,
		"total":       total,
		"limit":       limit,
		"offset":      offset,
	})
}

// record persists a scored result to the audit store and the optional record
// cache. Persistence failures are logged but do not fail the assessment.
func (s *Server) record(c *gin.Context, result *scoring.ScoringResult) string {
	rec, err := audit.NewRecord(result)
	if err != nil {
		s.logger.WithError(err).Error("Failed to build audit record")
		return ""
	}
	if err := s.store.Save(c.Request.Context(), rec); err != nil {
		s.logger.WithError(err).Error("Failed to persist assessment record")
		return ""
	}

	s.cacheRecord(c, rec)
	return rec.ID
}

// cacheRecord writes a record to the optional cache. Cache failures are
// logged but never surfaced.
func (s *Server) cacheRecord(c *gin.Context, rec *audit.Record) {
	if s.recordCache == nil {
		return
	}
	if err := s.recordCache.Set(c.Request.Context(), rec); err != nil {
		s.logger.WithError(err).Warn("Failed to cache assessment record")
	}
}

// writeMappedError translates pipeline errors into HTTP responses.
func (s *Server) writeMappedError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	var rerr *domain.ReconstitutionError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":          verr.Message,
			"code":           domain.ErrCodeValidation,
			"field":          verr.Field,
			"min":            verr.Min,
			"max":            verr.Max,
			"unit":           verr.Unit,
			"correlation_id": c.GetString("correlation_id"),
		})
	case errors.As(err, &rerr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          rerr.Message,
			"code":           domain.ErrCodeReconstitution,
			"field":          rerr.Field,
			"correlation_id": c.GetString("correlation_id"),
		})
	case errors.Is(err, domain.ErrUnknownProfile):
		s.writeError(c, http.StatusNotFound, domain.ErrCodeUnknownProfile, err.Error())
	case errors.Is(err, domain.ErrNilIndicators), errors.Is(err, domain.ErrInvalidConfidence):
		s.writeError(c, http.StatusBadRequest, domain.ErrCodeValidation, err.Error())
	default:
		s.writeError(c, http.StatusBadRequest, domain.ErrCodeValidation, err.Error())
	}
}

func (s *Server) writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error":          message,
		"code":           code,
		"correlation_id": c.GetString("correlation_id"),
	})
}
