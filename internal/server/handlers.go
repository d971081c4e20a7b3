package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"lastshow/internal/archive"
	"lastshow/internal/candidate"
	"lastshow/internal/extract"
	"lastshow/internal/logger"
)

// candidatesResponse is the common envelope for extraction endpoints.
type candidatesResponse struct {
	Candidates []candidate.Candidate `json:"candidates"`
	Count      int                   `json:"count"`
}

// genericRequest asks for generic extraction of a page. When HTML is
// supplied it is parsed directly; otherwise the URL is fetched.
type genericRequest struct {
	URL    string `json:"url"`
	HTML   string `json:"html,omitempty"`
	Artist string `json:"artist,omitempty"`
}

// selectRequest asks for a decision over a candidate batch for one metro.
type selectRequest struct {
	Metro      string                `json:"metro"`
	Candidates []candidate.Candidate `json:"candidates"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExtractListing(w http.ResponseWriter, r *http.Request) {
	var req extract.ListingRequest
	if !decodePost(w, r, &req) {
		return
	}
	if req.Artist == "" && req.Slug == "" {
		respondError(w, http.StatusBadRequest, "missing 'artist' or 'slug' in request body")
		return
	}

	cands, err := s.listing.Extract(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusBadGateway, fmt.Sprintf("listing extraction failed: %v", err))
		return
	}
	s.metrics.candidates.WithLabelValues("listing").Add(float64(len(cands)))
	respondJSON(w, http.StatusOK, candidatesResponse{Candidates: emptyIfNil(cands), Count: len(cands)})
}

func (s *Server) handleExtractGeneric(w http.ResponseWriter, r *http.Request) {
	var req genericRequest
	if !decodePost(w, r, &req) {
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "missing 'url' in request body")
		return
	}

	var cands []candidate.Candidate
	var err error
	if req.HTML != "" {
		cands, err = s.generic.Extract(strings.NewReader(req.HTML), req.URL, req.Artist)
	} else {
		cands, err = s.generic.ExtractURL(r.Context(), req.URL, req.Artist)
	}
	if err != nil {
		respondError(w, http.StatusBadGateway, fmt.Sprintf("generic extraction failed: %v", err))
		return
	}
	s.metrics.candidates.WithLabelValues("generic").Add(float64(len(cands)))
	respondJSON(w, http.StatusOK, candidatesResponse{Candidates: emptyIfNil(cands), Count: len(cands)})
}

func (s *Server) handleExtractArchive(w http.ResponseWriter, r *http.Request) {
	var req archive.Request
	if !decodePost(w, r, &req) {
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "missing 'url' in request body")
		return
	}

	cands, err := s.archive.Extract(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusBadGateway, fmt.Sprintf("archive extraction failed: %v", err))
		return
	}
	s.metrics.candidates.WithLabelValues("archive").Add(float64(len(cands)))
	respondJSON(w, http.StatusOK, candidatesResponse{Candidates: emptyIfNil(cands), Count: len(cands)})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decodePost(w, r, &req) {
		return
	}
	if req.Metro == "" {
		respondError(w, http.StatusBadRequest, "missing 'metro' in request body")
		return
	}
	if !s.classifier.Known(req.Metro) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown metro %q", req.Metro))
		return
	}
	for i, c := range req.Candidates {
		if err := c.Validate(); err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("candidate %d: %v", i, err))
			return
		}
	}

	result := s.selector.Select(req.Metro, req.Candidates)
	if result.Status == "unknown" {
		s.metrics.unknowns.Inc()
	}
	respondJSON(w, http.StatusOK, result)
}

// decodePost enforces the POST method and decodes a JSON body into v.
// It writes the error response itself and reports whether the handler
// should continue.
func decodePost(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "only POST is allowed")
		return false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("marshalling response failed", nil, err)
		http.Error(w, `{"error":"failed to marshal response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}

// emptyIfNil keeps the candidates field a JSON array even when extraction
// found nothing.
func emptyIfNil(cs []candidate.Candidate) []candidate.Candidate {
	if cs == nil {
		return []candidate.Candidate{}
	}
	return cs
}
