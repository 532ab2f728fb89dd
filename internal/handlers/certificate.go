package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/requestdata"
	"github.com/coursehub/coursehub-backend/internal/services"
)

type CertificateHandler struct {
	log                *logger.Logger
	certificateService services.CertificateService
}

func NewCertificateHandler(log *logger.Logger, certificateService services.CertificateService) *CertificateHandler {
	return &CertificateHandler{
		log:                log.With("handler", "CertificateHandler"),
		certificateService: certificateService,
	}
}

func (h *CertificateHandler) ListMyCertificates(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	certificates, err := h.certificateService.ListForUser(c.Request.Context(), rd.UserID)
	if err != nil {
		h.log.Error("ListMyCertificates failed", "error", err, "user_id", rd.UserID)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"certificates": certificates})
}

// Verify is public: anyone holding a certificate number can check it.
func (h *CertificateHandler) Verify(c *gin.Context) {
	verification, err := h.certificateService.VerifyByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, verification)
}

func (h *CertificateHandler) Download(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	certificateID, err := uuid.Parse(c.Param("certificateId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_certificate_id", err)
		return
	}
	certificate, filePath, err := h.certificateService.Download(c.Request.Context(), certificateID, rd.UserID, rd.Role)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.FileAttachment(filePath, fmt.Sprintf("%s.png", certificate.CertificateNumber))
}
