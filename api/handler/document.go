package handler

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/fyerfyer/doc-quiz-system/api/middleware"
	"github.com/fyerfyer/doc-quiz-system/api/model"
	"github.com/fyerfyer/doc-quiz-system/internal/services"
	"github.com/fyerfyer/doc-quiz-system/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Ingestor 文档处理的触发入口
// 异步实现投递队列任务，同步实现直接在后台执行
type Ingestor interface {
	// StartIngest 开始处理文档，返回任务ID，无任务账本的实现返回空串
	StartIngest(ctx context.Context, documentID string) (string, error)
}

// DocumentHandler 处理文档相关的API请求
type DocumentHandler struct {
	documents   *services.DocumentService // 文档管理服务
	ingestor    Ingestor                  // 处理触发入口
	fileStorage storage.Storage           // 上传文件存储
	logger      *logrus.Logger            // 日志记录器
}

// NewDocumentHandler 创建文档处理器
func NewDocumentHandler(documents *services.DocumentService, ingestor Ingestor, fileStorage storage.Storage) *DocumentHandler {
	return &DocumentHandler{
		documents:   documents,
		ingestor:    ingestor,
		fileStorage: fileStorage,
		logger:      middleware.GetLogger(),
	}
}

// Register 按来源地址登记文档
// POST /api/documents
func (h *DocumentHandler) Register(c *gin.Context) {
	var req model.DocumentRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid request parameters"))
		return
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = filepath.Base(req.SourceURL)
	}

	doc, err := h.documents.Register(c.Request.Context(), services.RegisterRequest{
		OwnerID:   middleware.OwnerID(c),
		FileName:  fileName,
		SourceURL: req.SourceURL,
		Metadata:  req.Metadata,
	})
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	resp := model.NewDocumentResponse(doc)
	if req.Process {
		taskID, err := h.ingestor.StartIngest(c.Request.Context(), doc.ID)
		if err != nil {
			middleware.HandleError(c, err)
			return
		}
		resp.TaskID = taskID
	}

	c.JSON(http.StatusCreated, model.NewSuccessResponse(resp))
}

// Upload 上传文档文件
// POST /api/documents/upload
func (h *DocumentHandler) Upload(c *gin.Context) {
	var req model.DocumentUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid request parameters"))
		return
	}

	filename := req.File.Filename
	if !isSupportedFileType(filename) {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"unsupported file type, only .pdf, .md, .markdown and .txt are accepted",
		))
		return
	}

	file, err := req.File.Open()
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	defer file.Close()

	ownerID := middleware.OwnerID(c)
	stored, err := h.fileStorage.Save(c.Request.Context(), ownerID, filename, file, req.File.Size)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	sourceURL, err := h.fileStorage.URL(c.Request.Context(), stored.Key)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	doc, err := h.documents.Register(c.Request.Context(), services.RegisterRequest{
		OwnerID:   ownerID,
		FileName:  filename,
		SourceURL: sourceURL,
		Metadata: map[string]interface{}{
			"storage_key":  stored.Key,
			"content_type": stored.ContentType,
			"size":         stored.Size,
		},
	})
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"document_id": doc.ID,
		"owner_id":    ownerID,
		"file_name":   filename,
		"size":        stored.Size,
	}).Info("Document uploaded")

	resp := model.NewDocumentResponse(doc)
	if req.Process {
		taskID, err := h.ingestor.StartIngest(c.Request.Context(), doc.ID)
		if err != nil {
			middleware.HandleError(c, err)
			return
		}
		resp.TaskID = taskID
	}

	c.JSON(http.StatusCreated, model.NewSuccessResponse(resp))
}

// Process 触发文档处理
// POST /api/documents/:id/process
func (h *DocumentHandler) Process(c *gin.Context) {
	var req model.DocumentIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid document ID"))
		return
	}

	// 先做归属校验，处理本身异步进行
	doc, err := h.documents.GetForOwner(c.Request.Context(), req.ID, middleware.OwnerID(c))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	taskID, err := h.ingestor.StartIngest(c.Request.Context(), doc.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	resp := model.NewDocumentResponse(doc)
	resp.TaskID = taskID

	c.JSON(http.StatusAccepted, model.NewSuccessResponse(resp))
}

// Get 获取文档信息和处理状态
// GET /api/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	var req model.DocumentIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid document ID"))
		return
	}

	doc, err := h.documents.GetForOwner(c.Request.Context(), req.ID, middleware.OwnerID(c))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewDocumentResponse(doc)))
}

// List 列出调用方的文档
// GET /api/documents
func (h *DocumentHandler) List(c *gin.Context) {
	var req model.DocumentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid query parameters"))
		return
	}

	page := req.GetPage()
	pageSize := req.GetPageSize()
	offset := (page - 1) * pageSize

	docs, total, err := h.documents.List(c.Request.Context(), middleware.OwnerID(c), offset, pageSize)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	items := make([]model.DocumentResponse, len(docs))
	for i, doc := range docs {
		items[i] = model.NewDocumentResponse(doc)
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentListResponse{
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
		Documents: items,
	}))
}

// Delete 删除文档及其向量数据
// DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	var req model.DocumentIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid document ID"))
		return
	}

	if err := h.documents.Delete(c.Request.Context(), req.ID, middleware.OwnerID(c)); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentDeleteResponse{
		Success: true,
		ID:      req.ID,
	}))
}

// isSupportedFileType 检查上传文件的扩展名是否受支持
func isSupportedFileType(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".md", ".markdown", ".txt", ".text":
		return true
	default:
		return false
	}
}
