package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/biovault/verify/pkg/biometric"
	"github.com/biovault/verify/pkg/media"
)

// photoRequest accepts both the current field names and the img*_path
// names older clients send.
type photoRequest struct {
	ImageRef1 string `json:"image_ref_1"`
	ImageRef2 string `json:"image_ref_2"`
	Img1Path  string `json:"img1_path"`
	Img2Path  string `json:"img2_path"`
}

type voiceRequest struct {
	AudioRef1  string `json:"audio_ref_1"`
	AudioRef2  string `json:"audio_ref_2"`
	Voice1Path string `json:"voice1_path"`
	Voice2Path string `json:"voice2_path"`
}

type detectRequest struct {
	ImageRef string `json:"image_ref"`
	ImgPath  string `json:"img_path"`
}

type errorResponse struct {
	Error string `json:"error"`
}

var errBadRequest = errors.New("bad request")

func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	var body photoRequest
	if err := decode(r, &body); err != nil {
		s.badRequest(w, r, err)
		return
	}
	a, b, err := s.refPair(first(body.ImageRef1, body.Img1Path), first(body.ImageRef2, body.Img2Path))
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.verify(w, r, biometric.FaceRequest(a, b))
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	var body voiceRequest
	if err := decode(r, &body); err != nil {
		s.badRequest(w, r, err)
		return
	}
	a, b, err := s.refPair(first(body.AudioRef1, body.Voice1Path), first(body.AudioRef2, body.Voice2Path))
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.verify(w, r, biometric.VoiceRequest(a, b))
}

func (s *Server) handleFaceDetect(w http.ResponseWriter, r *http.Request) {
	var body detectRequest
	if err := decode(r, &body); err != nil {
		s.badRequest(w, r, err)
		return
	}
	ref, err := s.ref(first(body.ImageRef, body.ImgPath), "image_ref")
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	ctx, release, ok := s.acquire(r)
	if !ok {
		writeJSON(w, http.StatusOK, biometric.FaceCheck{Error: biometric.ReasonBackend, Detail: "server busy"})
		return
	}
	defer release()

	res, err := s.verifier.CheckFace(ctx, ref)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			loggerFrom(r.Context(), s.logger).Warn("server: not ready", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request, req biometric.Request) {
	logger := loggerFrom(r.Context(), s.logger).With("modality", req.Modality.String())

	ctx, release, ok := s.acquire(r)
	if !ok {
		logger.Warn("server: no verification slot before deadline")
		writeJSON(w, http.StatusOK, biometric.Failure(biometric.ReasonBackend, "server busy"))
		return
	}
	defer release()

	v, err := s.verifier.Verify(ctx, req)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// acquire waits for a verification slot and returns the request context
// bounded by the server timeout.
func (s *Server) acquire(r *http.Request) (context.Context, func(), bool) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	if err := s.slots.Acquire(ctx, 1); err != nil {
		cancel()
		return nil, nil, false
	}
	return ctx, func() {
		s.slots.Release(1)
		cancel()
	}, true
}

func (s *Server) refPair(a, b string) (media.Reference, media.Reference, error) {
	ra, err := s.ref(a, "first reference")
	if err != nil {
		return media.Reference{}, media.Reference{}, err
	}
	rb, err := s.ref(b, "second reference")
	if err != nil {
		return media.Reference{}, media.Reference{}, err
	}
	return ra, rb, nil
}

func (s *Server) ref(raw, name string) (media.Reference, error) {
	if raw == "" {
		return media.Reference{}, fmt.Errorf("%w: %s is required", errBadRequest, name)
	}
	ref, err := media.ParseReference(raw)
	if err != nil {
		return media.Reference{}, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
	}
	if ref.Kind() == media.RefLocal && !s.allowLocal {
		return media.Reference{}, fmt.Errorf("%w: %s: local paths are not allowed", errBadRequest, name)
	}
	return ref, nil
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	loggerFrom(r.Context(), s.logger).Info("server: rejected request", "error", err)
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
