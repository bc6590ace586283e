package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kanishk2004/plug-rag-sub002/internal/config"
	"github.com/Kanishk2004/plug-rag-sub002/middleware"
	"github.com/Kanishk2004/plug-rag-sub002/models"
	"github.com/Kanishk2004/plug-rag-sub002/services"
	"github.com/Kanishk2004/plug-rag-sub002/utils"
)

// HandleUploadDocument accepts a multipart file upload and runs it through
// the ingestion pipeline. Small files are processed synchronously; the rest
// are queued.
func HandleUploadDocument(cfg *config.Config, docs *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge, "file_too_large",
				"File size exceeds maximum limit", gin.H{"max_bytes": cfg.MaxFileSize})
			return
		}

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondWithBadRequest(c, "No file provided in the 'file' field", nil)
			return
		}
		defer file.Close()

		opts, ok := parseOptions(c)
		if !ok {
			return
		}

		resp, err := docs.SubmitUpload(c.Request.Context(), &services.UploadRequest{
			File:     file,
			Header:   header,
			TenantID: middleware.GetTenantID(c),
			Options:  opts,
		})
		if err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}

		status := http.StatusAccepted
		if resp.Status == models.StatusCompleted || resp.Duplicate {
			status = http.StatusOK
		}
		c.JSON(status, resp)
	}
}

type urlIngestRequest struct {
	URL     string                   `json:"url" binding:"required"`
	Options models.ProcessingOptions `json:"options"`
}

// HandleIngestURL queues a single URL for fetching and ingestion.
func HandleIngestURL(docs *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req urlIngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Request body must include a 'url' field", nil)
			return
		}

		resp, err := docs.SubmitURL(c.Request.Context(), middleware.GetTenantID(c), req.URL, req.Options)
		if err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, resp)
	}
}

// HandleRechunkDocument re-runs chunking for a document with new options.
func HandleRechunkDocument(docs *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var opts models.ProcessingOptions
		if err := c.ShouldBindJSON(&opts); err != nil {
			utils.RespondWithBadRequest(c, "Invalid processing options", nil)
			return
		}

		doc, err := docs.Rechunk(c.Request.Context(), middleware.GetTenantID(c), c.Param("id"), opts)
		if err != nil {
			respondDocumentError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, doc)
	}
}

// HandleListDocuments returns the tenant's documents, newest first.
func HandleListDocuments(docs *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := queryInt64(c, "limit", 50)
		offset := queryInt64(c, "offset", 0)

		list, err := docs.ListDocuments(c.Request.Context(), middleware.GetTenantID(c), limit, offset)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list documents", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": list, "count": len(list)})
	}
}

// HandleGetDocument returns a single document with its metadata and status.
func HandleGetDocument(docs *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := docs.GetDocument(c.Request.Context(), middleware.GetTenantID(c), c.Param("id"))
		if err != nil {
			respondDocumentError(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// HandleListChunks returns a document's chunks in index order.
func HandleListChunks(docs *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := queryInt64(c, "limit", 100)
		offset := queryInt64(c, "offset", 0)

		chunks, err := docs.ListChunks(c.Request.Context(), middleware.GetTenantID(c), c.Param("id"), limit, offset)
		if err != nil {
			respondDocumentError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"chunks": chunks, "count": len(chunks)})
	}
}

// HandleDeleteDocument removes a document, its chunks, and its staged file.
func HandleDeleteDocument(docs *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := docs.DeleteDocument(c.Request.Context(), middleware.GetTenantID(c), c.Param("id"))
		if err != nil {
			respondDocumentError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "document deleted"})
	}
}

type crawlRequest struct {
	URL            string                   `json:"url" binding:"required"`
	MaxPages       int                      `json:"max_pages"`
	MaxDepth       int                      `json:"max_depth"`
	AllowedDomains []string                 `json:"allowed_domains"`
	AllowedPaths   []string                 `json:"allowed_paths"`
	RenderJS       bool                     `json:"render_js"`
	Options        models.ProcessingOptions `json:"options"`
}

// HandleStartCrawl queues a site crawl. Each content page becomes its own
// document.
func HandleStartCrawl(docs *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req crawlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Request body must include a 'url' field", nil)
			return
		}

		job, err := docs.StartCrawl(c.Request.Context(), &models.CrawlJob{
			TenantID:       middleware.GetTenantID(c),
			URL:            req.URL,
			MaxPages:       req.MaxPages,
			MaxDepth:       req.MaxDepth,
			AllowedDomains: req.AllowedDomains,
			AllowedPaths:   req.AllowedPaths,
			RenderJS:       req.RenderJS,
			Options:        req.Options,
		})
		if err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, job)
	}
}

// HandleGetCrawl returns a crawl job's status and ingested document IDs.
func HandleGetCrawl(docs *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := docs.GetCrawl(c.Request.Context(), middleware.GetTenantID(c), c.Param("id"))
		if err != nil {
			utils.RespondWithNotFound(c, "Crawl not found")
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

func respondDocumentError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrDocumentNotFound) {
		utils.RespondWithNotFound(c, "Document not found")
		return
	}
	utils.RespondWithPipelineError(c, err)
}

// parseOptions reads chunking options from multipart form fields.
func parseOptions(c *gin.Context) (models.ProcessingOptions, bool) {
	var opts models.ProcessingOptions

	for field, dst := range map[string]*int{
		"max_chunk_size":  &opts.MaxChunkSize,
		"timeout_seconds": &opts.TimeoutSeconds,
	} {
		raw := c.PostForm(field)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondWithBadRequest(c, "Field '"+field+"' must be an integer", nil)
			return opts, false
		}
		*dst = v
	}

	// An absent overlap field means "use the default"; zero is a real value.
	if raw := c.PostForm("overlap"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondWithBadRequest(c, "Field 'overlap' must be an integer", nil)
			return opts, false
		}
		opts.Overlap = &v
	}

	if raw := c.PostForm("respect_structure"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			utils.RespondWithBadRequest(c, "Field 'respect_structure' must be a boolean", nil)
			return opts, false
		}
		opts.RespectStructure = &v
	}
	if raw := c.PostForm("extract_links"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			utils.RespondWithBadRequest(c, "Field 'extract_links' must be a boolean", nil)
			return opts, false
		}
		opts.ExtractLinks = v
	}
	return opts, true
}

func queryInt64(c *gin.Context, name string, def int64) int64 {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}
