package models

import "errors"

var (
	// ErrDocumentNotFound 文档不存在错误
	ErrDocumentNotFound = errors.New("document not found")

	// ErrUnauthorized 请求者不是文档所有者错误
	// 与ErrDocumentNotFound严格区分：文档存在但归属他人
	ErrUnauthorized = errors.New("not authorized to access document")

	// ErrInvalidTransition 非法的文档状态转换错误
	ErrInvalidTransition = errors.New("invalid document status transition")
)
