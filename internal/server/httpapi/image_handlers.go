package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dmitrijs2005/webapp/internal/common"
	"github.com/dmitrijs2005/webapp/internal/server/models"
	"github.com/dmitrijs2005/webapp/internal/server/services"
)

// FileField is the multipart field carrying the picture.
const FileField = "profilePic"

// multipartOverhead is allowed on top of the file size for headers and boundaries.
const multipartOverhead = 1 << 20

type imageResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	FileName   string    `json:"file_name"`
	URL        string    `json:"url"`
	UploadDate time.Time `json:"upload_date"`
}

func toImageResponse(img *models.Image) imageResponse {
	return imageResponse{
		ID:         img.ID,
		UserID:     img.UserID,
		FileName:   img.FileName,
		URL:        img.URL,
		UploadDate: img.UploadedAt,
	}
}

func (s *Server) handleUploadPic(w http.ResponseWriter, r *http.Request) {
	limit := s.images.MaxBytes() + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeServiceError(r.Context(), w, common.ErrorTooLarge)
			return
		}
		s.writeServiceError(r.Context(), w, fmt.Errorf("%w: %v", common.ErrorValidation, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File[FileField]
	if len(files) != 1 {
		s.writeServiceError(r.Context(), w, fmt.Errorf("%w: expected exactly one %s file", common.ErrorValidation, FileField))
		return
	}
	header := files[0]

	file, err := header.Open()
	if err != nil {
		s.writeServiceError(r.Context(), w, fmt.Errorf("%w: %v", common.ErrorInternal, err))
		return
	}
	defer file.Close()

	if err := checkImageContent(file); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	id, _ := IdentityFrom(r.Context())
	img, err := s.images.Upload(r.Context(), id.AccountID, services.UploadInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toImageResponse(img))
}

// checkImageContent sniffs the file so that a declared image type cannot
// carry other content. The file is rewound afterwards.
func checkImageContent(file multipart.File) error {
	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if !detected.Is("image/jpeg") && !detected.Is("image/png") {
		return common.ErrorUnsupportedMedia
	}
	return nil
}

func (s *Server) handleGetPic(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	img, err := s.images.Get(r.Context(), id.AccountID)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toImageResponse(img))
}

func (s *Server) handleDeletePic(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	if err := s.images.Delete(r.Context(), id.AccountID); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
