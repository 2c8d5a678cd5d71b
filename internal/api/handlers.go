package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/copygate/internal/adcopy"
	"github.com/JakeFAU/copygate/internal/generate"
	"github.com/JakeFAU/copygate/internal/llm"
	"github.com/JakeFAU/copygate/internal/prompt"
)

const maxRequestBytes = 1 << 20

type scrapeRequest struct {
	URL string `json:"url"`
}

type generateRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system"`
	Messages  []llm.Message `json:"messages"`
	URL       string        `json:"url"`
	Keywords  []string      `json:"keywords"`
}

type generateResponse struct {
	llm.Response
	UsageCount int64               `json:"usage_count"`
	UsageLimit int64               `json:"usage_limit"`
	Gated      bool                `json:"gated"`
	Page       *adcopy.PageSignals `json:"page,omitempty"`
	Ad         *prompt.Ad          `json:"ad,omitempty"`
	Violations []string            `json:"violations,omitempty"`
}

type gatedResponse struct {
	Gated   bool   `json:"gated"`
	Count   int64  `json:"count"`
	Limit   int64  `json:"limit"`
	Message string `json:"message"`
}

type refineRequest struct {
	Current     string `json:"current"`
	Instruction string `json:"instruction"`
	Limit       int    `json:"limit"`
	IsDesc      bool   `json:"isDesc"`
	Language    string `json:"language"`
	URL         string `json:"url"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err //nolint:wrapcheck // surfaced as a 400 only
	}
	return nil
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}
	if err := adcopy.ValidateTargetURL(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, "invalid url: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Acquirer.Acquire(r.Context(), req.URL))
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Messages) == 0 && strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "messages or url is required")
		return
	}

	var page *adcopy.PageSignals
	if len(req.Messages) == 0 {
		if err := adcopy.ValidateTargetURL(req.URL); err != nil {
			writeError(w, http.StatusBadRequest, "invalid url: "+err.Error())
			return
		}
		signals := s.deps.Acquirer.Acquire(r.Context(), req.URL)
		text, err := prompt.AdCopy(prompt.AdCopyInput{
			URL:      req.URL,
			Page:     signals,
			Keywords: req.Keywords,
			Year:     s.deps.Clock.Now().Year(),
		})
		if err != nil {
			s.logger.Error("build prompt", zap.String("url", req.URL), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to build prompt")
			return
		}
		req.Messages = []llm.Message{{Role: "user", Content: llm.Text(text)}}
		page = &signals
	}

	identity := clientIdentity(r)
	res, err := s.deps.Generator.Generate(r.Context(), identity, llm.Request{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  req.Messages,
	})
	if err != nil {
		s.writeGenerateError(w, err)
		return
	}

	out := generateResponse{
		Response:   res.Response,
		UsageCount: res.Usage.Count,
		UsageLimit: res.Usage.Limit,
		Page:       page,
	}
	if page != nil {
		if ad, perr := prompt.ParseAdCopy(res.Text); perr == nil {
			out.Ad = &ad
			out.Violations = ad.Violations()
		} else {
			s.logger.Debug("completion did not parse as ad copy", zap.Error(perr))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeGenerateError(w http.ResponseWriter, err error) {
	var quotaErr *generate.QuotaExceededError
	var upstream *llm.UpstreamError
	switch {
	case errors.As(err, &quotaErr):
		writeJSON(w, http.StatusOK, gatedResponse{
			Gated:   true,
			Count:   quotaErr.Count,
			Limit:   quotaErr.Limit,
			Message: generate.GatedMessage(quotaErr.Limit),
		})
	case errors.Is(err, llm.ErrNotConfigured):
		writeError(w, http.StatusInternalServerError, "API key not configured")
	case errors.As(err, &upstream):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(upstream.StatusCode)
		if _, werr := w.Write(upstream.Body); werr != nil {
			s.logger.Debug("write upstream body", zap.Error(werr))
		}
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) refine(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	refined, err := s.deps.Refiner.Refine(r.Context(), prompt.RefineInput{
		Current:       req.Current,
		Instruction:   req.Instruction,
		Limit:         req.Limit,
		IsDescription: req.IsDesc,
		Language:      req.Language,
		URL:           req.URL,
	})
	switch {
	case errors.Is(err, generate.ErrInvalidRefinement):
		writeError(w, http.StatusBadRequest, "Missing fields")
	case errors.Is(err, llm.ErrNotConfigured):
		writeError(w, http.StatusInternalServerError, "API key not configured")
	case err != nil:
		s.logger.Warn("refine failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"refined": refined})
	}
}
