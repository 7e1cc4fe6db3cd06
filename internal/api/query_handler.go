package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"oddsrules/adapters/export"
	"oddsrules/app"
	"oddsrules/internal"
	apperrors "oddsrules/internal/errors"
)

// maxBodyBytes bounds a single query row
const maxBodyBytes = 1 << 16

// QueryHandler serves single-row lookups against the published rule set
type QueryHandler struct {
	query  *app.QueryService
	logger *internal.Logger
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(query *app.QueryService, logger *internal.Logger) *QueryHandler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &QueryHandler{query: query, logger: logger.Named("QueryHandler")}
}

// Register mounts the handler's routes
func (h *QueryHandler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Health)
	r.GET("/api/rules", h.Rules)
	r.POST("/api/check", h.Check)
}

// ModeView is the per-mode part of a check response
type ModeView struct {
	Mode    string           `json:"mode"`
	Title   string           `json:"title"`
	Matched bool             `json:"matched"`
	Count   int              `json:"count"`
	Rules   []export.RuleDoc `json:"rules"`
}

// CheckResponse is the body returned by POST /api/check
type CheckResponse struct {
	RunID    string             `json:"run_id"`
	Group    string             `json:"group"`
	Features map[string]float64 `json:"features"`
	Modes    []ModeView         `json:"modes"`
	Manual   []export.ManualDoc `json:"manual"`
}

// Check matches one row keyed by column letter
func (h *QueryHandler) Check(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		h.fail(c, apperrors.InvalidInput("unreadable request body"))
		return
	}
	cells, err := ParseRow(body)
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.query.CheckRow(cells)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := CheckResponse{
		RunID:    h.query.RuleSet().Manifest().RunID.String(),
		Group:    res.Case.Group.String(),
		Features: res.Case.Features,
		Modes:    make([]ModeView, 0, len(res.Modes)),
		Manual:   make([]export.ManualDoc, 0, len(res.Manual)),
	}
	for _, m := range res.Modes {
		v := ModeView{Mode: string(m.Mode), Title: m.Title, Matched: m.Matched, Count: m.Count, Rules: make([]export.RuleDoc, 0, len(m.Rules))}
		for _, r := range m.Rules {
			v.Rules = append(v.Rules, export.NewRuleDoc(r))
		}
		resp.Modes = append(resp.Modes, v)
	}
	for _, mr := range res.Manual {
		resp.Manual = append(resp.Manual, export.NewManualDoc(mr))
	}
	h.logger.Debug("check %s: %d modes", resp.Group, len(resp.Modes))
	c.JSON(http.StatusOK, resp)
}

// Rules returns the run identity and rule counts per mode
func (h *QueryHandler) Rules(c *gin.Context) {
	rs := h.query.RuleSet()
	m := rs.Manifest()
	counts := make(map[string]int)
	for _, mode := range rs.Modes() {
		counts[string(mode)] = rs.Count(mode)
	}
	groups := make([]string, 0)
	for _, g := range rs.Groups() {
		groups = append(groups, g.String())
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":       m.RunID.String(),
		"generated_at": m.CreatedAt,
		"fingerprint":  m.Fingerprint.Fingerprint.String(),
		"case_count":   m.CaseCount,
		"counts":       counts,
		"groups":       groups,
		"manual":       len(rs.Manual()),
	})
}

// Health reports liveness
func (h *QueryHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "run_id": h.query.RuleSet().Manifest().RunID.String()})
}

func (h *QueryHandler) fail(c *gin.Context, err error) {
	code := apperrors.GetCode(err)
	status := apperrors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed: %v", err)
	} else {
		h.logger.Debug("rejected request: %v", err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

// ParseRow reads a JSON object keyed by column letter. Values may be numbers
// or strings; null and blank strings are treated as empty cells. A wrapping
// {"row": {...}} object is accepted too.
func ParseRow(body []byte) (map[string]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, apperrors.InvalidInput("request body is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if row := root.Get("row"); row.IsObject() {
		root = row
	}
	if !root.IsObject() {
		return nil, apperrors.InvalidInput("request body must be an object keyed by column")
	}

	cells := make(map[string]string)
	var bad error
	root.ForEach(func(key, value gjson.Result) bool {
		col := strings.ToUpper(strings.TrimSpace(key.String()))
		switch value.Type {
		case gjson.Null:
		case gjson.Number:
			cells[col] = strconv.FormatFloat(value.Float(), 'f', -1, 64)
		case gjson.String:
			if s := strings.TrimSpace(value.String()); s != "" {
				cells[col] = s
			}
		default:
			bad = apperrors.InvalidInput(fmt.Sprintf("column %s: unsupported value %s", col, value.Raw))
			return false
		}
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return cells, nil
}

// NewRouter builds a gin engine with the query routes mounted
func NewRouter(h *QueryHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	h.Register(r)
	return r
}

