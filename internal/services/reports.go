package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"healthyaar-backend/internal/models"
)

const pendingImageTTL = 15 * time.Minute

// ReportService holds the pending report image and runs the analysis.
type ReportService struct {
	kv       KV
	prompts  *PromptBuilder
	gateway  *Gateway
	gate     *FeatureGate
	maxBytes int64
	now      func() time.Time
}

func NewReportService(kv KV, prompts *PromptBuilder, gateway *Gateway, gate *FeatureGate, maxBytes int64) *ReportService {
	return &ReportService{
		kv:       kv,
		prompts:  prompts,
		gateway:  gateway,
		gate:     gate,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

func pendingImageKey(userID uuid.UUID) string {
	return "report_image:" + userID.String()
}

func invalidUpload(reason string) error {
	return withNotice(fmt.Errorf("%w: %s", ErrInvalidUpload, reason), models.MsgInvalidImage)
}

// checkImage accepts only content that sniffs as an image. A declared
// type, when given, must also be an image type.
func (s *ReportService) checkImage(data []byte, declared string) (string, error) {
	if len(data) == 0 {
		return "", invalidUpload("empty file")
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", invalidUpload("file too large")
	}
	if declared != "" && !strings.HasPrefix(strings.ToLower(declared), "image/") {
		return "", invalidUpload("declared type " + declared)
	}
	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return "", invalidUpload("content is " + detected.String())
	}
	return detected.String(), nil
}

// Upload replaces the pending image. An invalid file also clears any
// earlier pending image.
func (s *ReportService) Upload(ctx context.Context, userID uuid.UUID, filename, declared string, data []byte) (*models.PendingImage, error) {
	mimeType, err := s.checkImage(data, declared)
	if err != nil {
		s.kv.Del(ctx, pendingImageKey(userID))
		return nil, err
	}

	img := &models.PendingImage{
		Data:       data,
		MimeType:   mimeType,
		Filename:   filename,
		UploadedAt: s.now(),
	}
	encoded, err := json.Marshal(img)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, pendingImageKey(userID), encoded, pendingImageTTL); err != nil {
		return nil, fmt.Errorf("failed to store pending image: %w", err)
	}
	return img, nil
}

func (s *ReportService) Pending(ctx context.Context, userID uuid.UUID) (*models.PendingImage, error) {
	data, err := s.kv.Get(ctx, pendingImageKey(userID))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, withNotice(ErrNoPendingImage, models.MsgReportImageMissing)
	}
	if err != nil {
		return nil, err
	}
	img := &models.PendingImage{}
	if err := json.Unmarshal(data, img); err != nil {
		return nil, withNotice(ErrNoPendingImage, models.MsgReportImageMissing)
	}
	return img, nil
}

func (s *ReportService) ResetIdentity(ctx context.Context, userID uuid.UUID) error {
	return s.kv.Del(ctx, pendingImageKey(userID))
}

// Analyze sends the pending image, or inline when given, upstream. The
// pending image is discarded once a response (or fallback) is produced.
func (s *ReportService) Analyze(ctx context.Context, userID uuid.UUID, inline *models.AnalyzeReportRequest) (*models.AnalysisResponse, error) {
	var img InlineImage
	usePending := inline == nil

	if usePending {
		pending, err := s.Pending(ctx, userID)
		if err != nil {
			return nil, err
		}
		img = InlineImage{MimeType: pending.MimeType, Data: pending.Data}
	} else {
		data, err := base64.StdEncoding.DecodeString(inline.Image)
		if err != nil {
			return nil, invalidUpload("image is not valid base64")
		}
		mimeType, err := s.checkImage(data, inline.MimeType)
		if err != nil {
			return nil, err
		}
		img = InlineImage{MimeType: mimeType, Data: data}
	}

	release, err := s.gate.Acquire(ctx, userID, models.FeatureReport)
	if err != nil {
		return nil, err
	}
	defer release()

	out := s.gateway.Generate(ctx, userID, models.FeatureReport, s.prompts.Report(img), ReportFallback)

	if usePending {
		s.kv.Del(context.WithoutCancel(ctx), pendingImageKey(userID))
	}
	return &models.AnalysisResponse{AnalysisHTML: out.Text, Fallback: out.Fallback}, nil
}
