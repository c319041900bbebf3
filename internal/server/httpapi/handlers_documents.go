package httpapi

import (
	"io"
	"mime/multipart"
	"strings"

	"docvault/internal/common"
	"docvault/internal/server/repositories/tags"
	"docvault/internal/server/services"

	"github.com/gofiber/fiber/v2"
)

type documentCreatedResponse struct {
	Document documentResponse `json:"document"`
	Version  versionResponse  `json:"version"`
}

func (s *Server) handleCreateDocument(c *fiber.Ctx) error {
	fileName, content, err := readUpload(c)
	if err != nil {
		return err
	}

	doc, version, err := s.documents.Create(c.UserContext(), actorID(c), services.CreateDocumentInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Tags:        splitCommaList(c.FormValue("tags")),
		FileName:    fileName,
		MimeType:    c.FormValue("mime_type"),
		Content:     content,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(documentCreatedResponse{
		Document: toDocumentResponse(doc, tags.Normalize(splitCommaList(c.FormValue("tags")))),
		Version:  toVersionResponse(version),
	})
}

type documentListResponse struct {
	Documents []documentResponse `json:"documents"`
	Total     int                `json:"total"`
	Page      int                `json:"page"`
	Limit     int                `json:"limit"`
}

func (s *Server) handleListDocuments(c *fiber.Ctx) error {
	in := services.ListDocumentsInput{
		Title:    c.Query("title"),
		FileType: c.Query("file_type"),
		Tags:     splitCommaList(c.Query("tags")),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 0),
	}

	page, err := s.documents.List(c.UserContext(), actorID(c), in)
	if err != nil {
		return err
	}

	resp := documentListResponse{
		Documents: make([]documentResponse, 0, len(page.Documents)),
		Total:     page.Total,
		Page:      page.Page,
		Limit:     page.Limit,
	}
	for _, d := range page.Documents {
		resp.Documents = append(resp.Documents, toDocumentResponse(d, nil))
	}
	return c.JSON(resp)
}

func (s *Server) handleGetDocument(c *fiber.Ctx) error {
	doc, tags, err := s.documents.Get(c.UserContext(), c.Params("id"), actorID(c))
	if err != nil {
		return err
	}
	return c.JSON(toDocumentResponse(doc, tags))
}

type updateDocumentRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

func (s *Server) handleUpdateDocument(c *fiber.Ctx) error {
	var req updateDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return common.E(common.KindInvalidInput, "malformed request body")
	}

	if _, err := s.documents.UpdateMetadata(c.UserContext(), c.Params("id"), actorID(c), services.UpdateDocumentInput{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	}); err != nil {
		return err
	}

	doc, docTags, err := s.documents.Get(c.UserContext(), c.Params("id"), actorID(c))
	if err != nil {
		return err
	}
	return c.JSON(toDocumentResponse(doc, docTags))
}

func (s *Server) handleDeleteDocument(c *fiber.Ctx) error {
	if err := s.documents.SoftDelete(c.UserContext(), c.Params("id"), actorID(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleUploadVersion(c *fiber.Ctx) error {
	fileName, content, err := readUpload(c)
	if err != nil {
		return err
	}

	version, err := s.documents.UploadNewVersion(c.UserContext(), c.Params("id"), actorID(c), services.UploadVersionInput{
		FileName: fileName,
		MimeType: c.FormValue("mime_type"),
		Content:  content,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toVersionResponse(version))
}

func (s *Server) handleListVersions(c *fiber.Ctx) error {
	versions, err := s.documents.ListVersions(c.UserContext(), c.Params("id"), actorID(c))
	if err != nil {
		return err
	}

	resp := make([]versionResponse, 0, len(versions))
	for _, v := range versions {
		resp = append(resp, toVersionResponse(v))
	}
	return c.JSON(fiber.Map{"versions": resp})
}

func (s *Server) handleDownload(c *fiber.Ctx) error {
	target, err := s.documents.GetDownloadTarget(c.UserContext(), c.Params("id"), actorID(c))
	if err != nil {
		return err
	}
	return c.JSON(s.toDownloadResponse(target))
}

func (s *Server) handleDownloadVersion(c *fiber.Ctx) error {
	target, err := s.documents.GetVersionDownloadTarget(c.UserContext(),
		c.Params("id"), c.Params("versionID"), actorID(c))
	if err != nil {
		return err
	}
	return c.JSON(s.toDownloadResponse(target))
}

func (s *Server) handleListActivity(c *fiber.Ctx) error {
	entries, err := s.activity.ListForDocument(c.UserContext(), c.Params("id"), actorID(c))
	if err != nil {
		return err
	}

	resp := make([]activityResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, activityResponse{
			ID:         e.ID,
			UserID:     e.UserID,
			DocumentID: e.DocumentID,
			Action:     e.Action,
			Details:    e.Details,
			CreatedAt:  e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"activity": resp})
}

// readUpload pulls the "file" part out of a multipart request.
func readUpload(c *fiber.Ctx) (string, []byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", nil, common.E(common.KindInvalidInput, "multipart field \"file\" is required")
	}

	content, err := readMultipartFile(fh)
	if err != nil {
		return "", nil, common.Wrap(common.KindInvalidInput, "reading uploaded file", err)
	}

	return fh.Filename, content, nil
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// splitCommaList turns "a, b," into ["a" "b"]. Empty input yields nil.
func splitCommaList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
