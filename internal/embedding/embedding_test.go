package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer 创建返回固定规则向量的模拟嵌入服务
// 每条文本的向量首元素等于其输入序号，便于验证顺序
func newTestServer(t *testing.T, dims int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req dashScopeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var resp dashScopeResponse
		// 逆序返回，客户端需要按text_index重排
		for i := len(req.Input.Texts) - 1; i >= 0; i-- {
			vec := make([]float32, dims)
			vec[0] = float32(i)
			resp.Output.Embeddings = append(resp.Output.Embeddings, struct {
				Embedding []float32 `json:"embedding"`
				TextIndex int       `json:"text_index"`
			}{Embedding: vec, TextIndex: i})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

// TestNewTongyiClient 测试客户端创建和配置校验
func TestNewTongyiClient(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		_, err := NewTongyiClient()
		require.Error(t, err)

		var embErr EmbeddingError
		require.ErrorAs(t, err, &embErr)
		assert.Equal(t, ErrCodeInvalidAPIKey, embErr.Code)
	})

	t.Run("invalid dimension", func(t *testing.T) {
		_, err := NewTongyiClient(WithAPIKey("test-key"), WithDimensions(777))
		assert.Error(t, err, "非法维度应创建失败")
	})

	t.Run("defaults", func(t *testing.T) {
		client, err := NewTongyiClient(WithAPIKey("test-key"))
		require.NoError(t, err)
		assert.Equal(t, 768, client.Dimensions())
		assert.Equal(t, "text-embedding-v3", client.Name())
	})
}

// TestEmbedBatchOrder 测试批量嵌入的顺序保持
func TestEmbedBatchOrder(t *testing.T) {
	server := newTestServer(t, 768)
	defer server.Close()

	client, err := NewTongyiClient(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
	)
	require.NoError(t, err)

	texts := []string{"first", "second", "third"}
	vectors, err := client.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	require.Equal(t, len(texts), len(vectors), "向量数量应等于输入文本数量")
	for i, vec := range vectors {
		assert.Equal(t, 768, len(vec))
		assert.Equal(t, float32(i), vec[0], "第%d个向量应对应第%d条文本", i, i)
	}
}

// TestEmbedBatchSplitting 测试超出单次上限的输入切分
func TestEmbedBatchSplitting(t *testing.T) {
	var requestCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++

		var req dashScopeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Input.Texts), 2, "单次请求的文本数不应超过batchSize")

		var resp dashScopeResponse
		for i := range req.Input.Texts {
			resp.Output.Embeddings = append(resp.Output.Embeddings, struct {
				Embedding []float32 `json:"embedding"`
				TextIndex int       `json:"text_index"`
			}{Embedding: []float32{1, 2, 3}, TextIndex: i})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewTongyiClient(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithBatchSize(2),
	)
	require.NoError(t, err)

	texts := []string{"a", "b", "c", "d", "e"}
	vectors, err := client.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	assert.Equal(t, 5, len(vectors))
	assert.Equal(t, 3, requestCount, "5条文本按batchSize=2应拆成3次请求")
}

// TestEmbedBatchMissingVector 测试响应缺失向量时的错误处理
func TestEmbedBatchMissingVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 只返回第一条文本的向量
		var resp dashScopeResponse
		resp.Output.Embeddings = append(resp.Output.Embeddings, struct {
			Embedding []float32 `json:"embedding"`
			TextIndex int       `json:"text_index"`
		}{Embedding: []float32{1}, TextIndex: 0})
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewTongyiClient(WithAPIKey("test-key"), WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = client.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err, "缺失向量应整体失败而不是静默跳过")

	var embErr EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, ErrCodeBadResponse, embErr.Code)
}

// TestEmbedBatchAPIError 测试服务端错误响应
func TestEmbedBatchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dashScopeResponse{
			Code:    "InvalidParameter",
			Message: "something went wrong",
		})
	}))
	defer server.Close()

	client, err := NewTongyiClient(WithAPIKey("test-key"), WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = client.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "something went wrong")
}

// TestEmbedEmptyInput 测试空输入的处理
func TestEmbedEmptyInput(t *testing.T) {
	client, err := NewTongyiClient(WithAPIKey("test-key"))
	require.NoError(t, err)

	t.Run("empty text", func(t *testing.T) {
		_, err := client.Embed(context.Background(), "")
		require.Error(t, err)

		var embErr EmbeddingError
		require.ErrorAs(t, err, &embErr)
		assert.Equal(t, ErrCodeEmptyInput, embErr.Code)
	})

	t.Run("empty batch", func(t *testing.T) {
		vectors, err := client.EmbedBatch(context.Background(), nil)
		assert.NoError(t, err)
		assert.Empty(t, vectors, "空批量输入应返回空结果")
	})
}

// TestEmbedRetryOnServerError 测试服务器错误的重试
func TestEmbedRetryOnServerError(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"message":"temporary failure"}`)
			return
		}

		var resp dashScopeResponse
		resp.Output.Embeddings = append(resp.Output.Embeddings, struct {
			Embedding []float32 `json:"embedding"`
			TextIndex int       `json:"text_index"`
		}{Embedding: []float32{1}, TextIndex: 0})
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewTongyiClient(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithMaxRetries(3),
	)
	require.NoError(t, err)

	vectors, err := client.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err, "5xx错误应重试直至成功")
	assert.Equal(t, 1, len(vectors))
	assert.Equal(t, 3, attempts)
}

// TestEmbedNoRetryByDefault 测试默认配置下不重试
func TestEmbedNoRetryByDefault(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"message":"temporary failure"}`)
	}))
	defer server.Close()

	client, err := NewTongyiClient(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
	)
	require.NoError(t, err)

	_, err = client.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "默认配置下每次请求只应对外调用一次")
}

// TestUnregisteredClient 测试未注册的客户端类型
func TestUnregisteredClient(t *testing.T) {
	_, err := NewClient("nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}
