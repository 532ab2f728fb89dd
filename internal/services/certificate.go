package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursehub/coursehub-backend/internal/pkg/apperr"
	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/repos"
	"github.com/coursehub/coursehub-backend/internal/types"
)

// RenderRequest is everything the artifact renderer needs. The engine never
// looks inside the artifact; it only records the resulting URL.
type RenderRequest struct {
	UserName          string
	CourseName        string
	CompletionDate    time.Time
	CertificateNumber string
	InstructorName    string
	OrganizationName  string
}

type RenderResult struct {
	FileURL  string
	FilePath string
}

// CertificateRenderer is the external artifact producer. Render failures are
// tolerated: the certificate record is still created and the artifact is
// regenerated on demand at download time.
type CertificateRenderer interface {
	Render(ctx context.Context, req RenderRequest) (*RenderResult, error)
}

type IssueResult struct {
	Created     bool
	Certificate *types.Certificate
}

type CertificateVerification struct {
	IsValid           bool      `json:"is_valid"`
	CertificateNumber string    `json:"certificate_number"`
	IssuedAt          time.Time `json:"issued_at"`
	RecipientName     string    `json:"recipient_name"`
	CourseName        string    `json:"course_name"`
	CourseSlug        string    `json:"course_slug"`
}

type CertificateService interface {
	// IssueIfAbsent creates at most one certificate for (user, course).
	// The guarantee comes from the store's unique index, not from the
	// existence pre-check: a racing duplicate insert is classified as a
	// benign "already exists" and the winning row is returned.
	IssueIfAbsent(ctx context.Context, tx *gorm.DB, userID uuid.UUID, course *types.Course) (*IssueResult, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.Certificate, error)
	VerifyByNumber(ctx context.Context, number string) (*CertificateVerification, error)
	// Download returns a local file path for the certificate artifact,
	// re-rendering and backfilling certificate_url when needed.
	Download(ctx context.Context, certificateID, requesterID uuid.UUID, requesterRole string) (*types.Certificate, string, error)
}

type certificateService struct {
	db              *gorm.DB
	log             *logger.Logger
	certificateRepo repos.CertificateRepo
	userRepo        repos.UserRepo
	courseRepo      repos.CourseRepo
	renderer        CertificateRenderer
	notifier        Notifier
	organization    string
}

func NewCertificateService(
	db *gorm.DB,
	baseLog *logger.Logger,
	certificateRepo repos.CertificateRepo,
	userRepo repos.UserRepo,
	courseRepo repos.CourseRepo,
	renderer CertificateRenderer,
	notifier Notifier,
	organization string,
) CertificateService {
	serviceLog := baseLog.With("service", "CertificateService")
	return &certificateService{
		db:              db,
		log:             serviceLog,
		certificateRepo: certificateRepo,
		userRepo:        userRepo,
		courseRepo:      courseRepo,
		renderer:        renderer,
		notifier:        notifier,
		organization:    organization,
	}
}

// GenerateCertificateNumber builds a CERT-YYYYMM-XXXXXXXX number. The random
// tail is collision-resistant, not collision-free; the unique index on
// certificate_number is what actually rejects a repeat.
func GenerateCertificateNumber(now time.Time) string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("CERT-%s-%s", now.Format("200601"), random)
}

func (cs *certificateService) IssueIfAbsent(ctx context.Context, tx *gorm.DB, userID uuid.UUID, course *types.Course) (*IssueResult, error) {
	if course == nil {
		return nil, fmt.Errorf("course required: %w", apperr.ErrInvalidArgument)
	}

	existing, err := cs.certificateRepo.GetByUserAndCourse(ctx, tx, userID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("look up certificate: %w", err)
	}
	if existing != nil {
		return &IssueResult{Created: false, Certificate: existing}, nil
	}

	now := time.Now()
	number := GenerateCertificateNumber(now)

	fileURL := ""
	if cs.renderer != nil {
		req, reqErr := cs.buildRenderRequest(ctx, tx, userID, course, number, now)
		if reqErr != nil {
			cs.log.Warn("could not assemble render request, deferring artifact", "certificate_number", number, "error", reqErr)
		} else if result, renderErr := cs.renderer.Render(ctx, req); renderErr != nil {
			// Best effort. The record is still created and the download
			// path regenerates the artifact later.
			cs.log.Warn("certificate render failed, record created without url", "certificate_number", number, "error", renderErr)
		} else {
			fileURL = result.FileURL
		}
	}

	cert := &types.Certificate{
		ID:                uuid.New(),
		UserID:            userID,
		CourseID:          course.ID,
		CertificateNumber: number,
		CertificateURL:    fileURL,
		IssuedAt:          now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := cs.certificateRepo.Create(ctx, tx, cert); err != nil {
		if apperr.IsDuplicateKey(err) {
			// Either a racing issuer won (user, course) or the number
			// collided across pairs. The former is benign; the latter is
			// a retryable conflict.
			winner, lookupErr := cs.certificateRepo.GetByUserAndCourse(ctx, tx, userID, course.ID)
			if lookupErr != nil {
				return nil, fmt.Errorf("look up certificate after conflict: %w", lookupErr)
			}
			if winner != nil {
				return &IssueResult{Created: false, Certificate: winner}, nil
			}
			return nil, fmt.Errorf("certificate number collision for %s: %w", number, apperr.ErrConflict)
		}
		return nil, fmt.Errorf("create certificate: %w", err)
	}

	if cs.notifier != nil {
		cs.notifier.Notify(ctx, userID,
			types.NotificationCertificateIssued,
			"Certificate Issued",
			fmt.Sprintf("Congratulations! You've earned a certificate for completing %q", course.Title),
			fmt.Sprintf("/certificates/%s", cert.ID),
		)
	}

	return &IssueResult{Created: true, Certificate: cert}, nil
}

func (cs *certificateService) buildRenderRequest(ctx context.Context, tx *gorm.DB, userID uuid.UUID, course *types.Course, number string, issuedAt time.Time) (RenderRequest, error) {
	userName := "Student"
	instructorName := ""

	people, err := cs.userRepo.GetByIDs(ctx, tx, []uuid.UUID{userID, course.InstructorID})
	if err != nil {
		return RenderRequest{}, fmt.Errorf("load certificate participants: %w", err)
	}
	for _, person := range people {
		if person == nil {
			continue
		}
		if person.ID == userID {
			userName = person.Name
		}
		if person.ID == course.InstructorID {
			instructorName = person.Name
		}
	}

	return RenderRequest{
		UserName:          userName,
		CourseName:        course.Title,
		CompletionDate:    issuedAt,
		CertificateNumber: number,
		InstructorName:    instructorName,
		OrganizationName:  cs.organization,
	}, nil
}

func (cs *certificateService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.Certificate, error) {
	certs, err := cs.certificateRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}

func (cs *certificateService) VerifyByNumber(ctx context.Context, number string) (*CertificateVerification, error) {
	cert, err := cs.certificateRepo.GetByNumber(ctx, nil, number)
	if err != nil {
		return nil, fmt.Errorf("look up certificate: %w", err)
	}
	if cert == nil {
		return nil, fmt.Errorf("certificate number %q: %w", number, apperr.ErrNotFound)
	}

	verification := &CertificateVerification{
		IsValid:           true,
		CertificateNumber: cert.CertificateNumber,
		IssuedAt:          cert.IssuedAt,
	}

	if holders, err := cs.userRepo.GetByIDs(ctx, nil, []uuid.UUID{cert.UserID}); err == nil && len(holders) > 0 && holders[0] != nil {
		verification.RecipientName = holders[0].Name
	}
	if courses, err := cs.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{cert.CourseID}); err == nil && len(courses) > 0 && courses[0] != nil {
		verification.CourseName = courses[0].Title
		verification.CourseSlug = courses[0].Slug
	}
	return verification, nil
}

func (cs *certificateService) Download(ctx context.Context, certificateID, requesterID uuid.UUID, requesterRole string) (*types.Certificate, string, error) {
	certs, err := cs.certificateRepo.GetByIDs(ctx, nil, []uuid.UUID{certificateID})
	if err != nil {
		return nil, "", fmt.Errorf("load certificate: %w", err)
	}
	if len(certs) == 0 || certs[0] == nil {
		return nil, "", fmt.Errorf("certificate %s: %w", certificateID, apperr.ErrNotFound)
	}
	cert := certs[0]

	if cert.UserID != requesterID && requesterRole != types.RoleAdmin {
		return nil, "", fmt.Errorf("not authorized to download certificate %s: %w", certificateID, apperr.ErrForbidden)
	}

	if cs.renderer == nil {
		return nil, "", fmt.Errorf("no renderer configured: %w", apperr.ErrNotFound)
	}

	courses, err := cs.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{cert.CourseID})
	if err != nil || len(courses) == 0 || courses[0] == nil {
		return nil, "", fmt.Errorf("load certificate course: %w", apperr.ErrNotFound)
	}
	course := courses[0]

	req, err := cs.buildRenderRequest(ctx, nil, cert.UserID, course, cert.CertificateNumber, cert.IssuedAt)
	if err != nil {
		return nil, "", err
	}

	result, err := cs.renderer.Render(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("render certificate: %w", err)
	}
	if _, statErr := os.Stat(result.FilePath); statErr != nil {
		return nil, "", fmt.Errorf("certificate artifact missing after render: %w", statErr)
	}

	// Backfill the url if the original issuance never got one.
	if cert.CertificateURL == "" && result.FileURL != "" {
		if err := cs.certificateRepo.SetURL(ctx, nil, cert.ID, result.FileURL); err != nil {
			cs.log.Warn("failed to backfill certificate url", "certificate_id", cert.ID, "error", err)
		} else {
			cert.CertificateURL = result.FileURL
		}
	}

	return cert, result.FilePath, nil
}
