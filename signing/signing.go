// Package signing stamps signature images onto the template document,
// publishes the result and records its integrity hashes.
//
// A signing operation either completes entirely or leaves nothing behind:
// the signed file is only published after both digests were computed, and it
// is removed again when the audit record cannot be stored.
package signing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/digitorus/pdfstamp"
	"github.com/digitorus/pdfstamp/audit"
	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/images"
	"github.com/digitorus/pdfstamp/integrity"
	"github.com/digitorus/pdfstamp/storage"
)

// DefaultSignerID is recorded when a request does not name a signer.
const DefaultSignerID = "guest-signer"

// Files is where signed documents are published.
type Files interface {
	Save(ctx context.Context, name string, data []byte) (storage.Object, error)
	Delete(name string) error
}

// Request is a single signing operation.
type Request struct {
	// DocumentID identifies the document in audit records and file names.
	DocumentID string
	SignerID   string
	// Signature is base64 image data, optionally as a data URL.
	Signature string
	Placement geometry.PlacementRequest
}

// Response describes a completed signing operation.
type Response struct {
	URL          string
	OriginalHash string
	FinalHash    string
	Warnings     []string

	Entry audit.Entry
	Stamp pdfstamp.StampInfo
}

// Service signs copies of a template document.
type Service struct {
	template   []byte
	documentID string

	files    Files
	store    audit.Store
	recorder *integrity.Recorder
	policy   geometry.Policy
	producer string

	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets the digest recorder.
func WithRecorder(r *integrity.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithPolicy sets the placement sanitization policy.
func WithPolicy(p geometry.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithProducer sets the /Producer written to the document information.
func WithProducer(p string) Option {
	return func(s *Service) { s.producer = p }
}

// WithDocumentID sets the document ID used when a request has none.
func WithDocumentID(id string) Option {
	return func(s *Service) { s.documentID = id }
}

// New returns a Service stamping onto template. The template is validated
// once; it is never modified.
func New(template []byte, files Files, store audit.Store, opts ...Option) (*Service, error) {
	s := &Service{
		template:   template,
		documentID: "template",
		files:      files,
		store:      store,
		recorder:   integrity.NewRecorder(),
		policy:     geometry.DefaultPolicy(),
		producer:   "pdfstamp",
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	if err := s.policy.Validate(); err != nil {
		return nil, err
	}

	doc, err := pdfstamp.OpenBytes(template)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	s.logger.Info("Template loaded",
		zap.Int("pages", doc.NumPage()),
		zap.Int("bytes", len(template)),
	)
	return s, nil
}

// Template returns the template bytes. The slice must not be modified.
func (s *Service) Template() []byte {
	return s.template
}

// Sign stamps req onto a fresh copy of the template and publishes it.
func (s *Service) Sign(ctx context.Context, req Request) (resp *Response, err error) {
	start := s.now()
	defer func() {
		s.metrics.requests.WithLabelValues(Classify(err).String()).Inc()
		s.metrics.duration.Observe(s.now().Sub(start).Seconds())
	}()

	if req.DocumentID == "" {
		req.DocumentID = s.documentID
	}
	if req.SignerID == "" {
		req.SignerID = DefaultSignerID
	}
	log := s.logger.With(
		zap.String("document_id", req.DocumentID),
		zap.String("signer_id", req.SignerID),
	)

	sig, err := images.FromBase64("signature", req.Signature)
	if err != nil {
		log.Info("Rejected signature image", zap.Error(err))
		return nil, err
	}

	signed, info, err := s.stamp(sig, req.Placement)
	if err != nil {
		log.Info("Stamping failed", zap.Error(err))
		return nil, err
	}
	log.Debug("Signature placed",
		zap.Int("page", info.Page),
		zap.Float64("page_width", info.Geometry.WidthPoints),
		zap.Float64("page_height", info.Geometry.HeightPoints),
		zap.Any("box", info.Box),
		zap.Any("draw", info.Draw),
	)
	if info.Adjustments.Clamped() {
		log.Debug("Placement position clamped",
			zap.Float64("x", req.Placement.RelativeX),
			zap.Float64("y", req.Placement.RelativeY),
		)
	}
	if info.Adjustments.OverflowFallback {
		s.metrics.fallbacks.WithLabelValues("overflow").Inc()
		log.Warn("Placement overflowed the page, fallback box used",
			zap.Float64("x", req.Placement.RelativeX),
			zap.Any("box", info.Box),
		)
	}
	if info.PageFallback {
		s.metrics.fallbacks.WithLabelValues("page").Inc()
		log.Warn("Requested page does not exist, first page used",
			zap.Int("requested_page", info.RequestedPage),
		)
	}

	rec, err := s.recorder.RecordSigning(s.template, signed, req.DocumentID, req.SignerID)
	if err != nil {
		log.Error("Integrity computation failed", zap.Error(err))
		return nil, err
	}

	name := storage.FileName(req.DocumentID, s.now())
	obj, err := s.files.Save(ctx, name, signed)
	if err != nil {
		log.Error("Failed to store signed document", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("failed to store signed document: %w", err)
	}

	entry := audit.NewEntry(rec, obj.URL)
	if err := s.store.Create(ctx, &entry); err != nil {
		if derr := s.files.Delete(name); derr != nil {
			log.Error("Failed to remove unrecorded document", zap.String("name", name), zap.Error(derr))
		}
		log.Error("Failed to store audit record", zap.Error(err))
		return nil, fmt.Errorf("failed to store audit record: %w", err)
	}
	s.metrics.documentBytes.Observe(float64(len(signed)))

	log.Info("Document signed",
		zap.String("url", obj.URL),
		zap.String("original_hash", rec.OriginalHash),
		zap.String("final_hash", rec.FinalHash),
		zap.String("algorithm", string(rec.Algorithm)),
	)

	return &Response{
		URL:          obj.URL,
		OriginalHash: rec.OriginalHash,
		FinalHash:    rec.FinalHash,
		Warnings:     info.Warnings(),
		Entry:        entry,
		Stamp:        info,
	}, nil
}

// stamp draws sig on a copy of the template and returns the new bytes.
func (s *Service) stamp(sig *images.Image, placement geometry.PlacementRequest) ([]byte, pdfstamp.StampInfo, error) {
	doc, err := pdfstamp.OpenBytes(s.template)
	if err != nil {
		return nil, pdfstamp.StampInfo{}, fmt.Errorf("invalid template: %w", err)
	}
	if err := doc.SetPolicy(s.policy); err != nil {
		return nil, pdfstamp.StampInfo{}, err
	}
	doc.SetProducer(s.producer)
	doc.SetClock(s.now)

	doc.Stamp(sig).Placement(placement)

	var buf bytes.Buffer
	result, err := doc.Write(&buf)
	if err != nil {
		return nil, pdfstamp.StampInfo{}, err
	}
	return buf.Bytes(), result.Stamps[0], nil
}

// History returns the audit entries of documentID.
func (s *Service) History(ctx context.Context, documentID string, offset, limit int) ([]audit.Entry, int, error) {
	if documentID == "" {
		return nil, 0, errors.New("document id is required")
	}
	return s.store.ListByDocument(ctx, documentID, offset, limit)
}
