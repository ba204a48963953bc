package vectordb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantRepository 基于Qdrant的向量仓库实现
// 通过gRPC连接Qdrant服务，文档过滤在服务端完成
type QdrantRepository struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dimension   int
}

// NewQdrantRepository 创建Qdrant向量仓库
func NewQdrantRepository(config Config) (Repository, error) {
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}
	if config.Addr == "" {
		return nil, fmt.Errorf("qdrant address is required")
	}

	collection := config.Collection
	if collection == "" {
		collection = "document_chunks"
	}

	conn, err := grpc.NewClient(config.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to dial qdrant at %s: %v", config.Addr, err)
	}

	return &QdrantRepository{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dimension:   config.Dimension,
	}, nil
}

// Init 确保集合存在，不存在则按余弦距离创建
func (r *QdrantRepository) Init(ctx context.Context) error {
	list, err := r.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list qdrant collections: %v", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == r.collection {
			return nil
		}
	}

	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.dimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create qdrant collection %s: %v", r.collection, err)
	}
	return nil
}

// Insert 批量插入分块向量
func (r *QdrantRepository) Insert(ctx context.Context, req *InsertRequest) ([]string, error) {
	if err := req.Validate(r.dimension); err != nil {
		return nil, err
	}
	if len(req.Chunks) == 0 {
		return nil, nil
	}

	ids := make([]string, len(req.Chunks))
	points := make([]*pb.PointStruct, len(req.Chunks))
	for i := range req.Chunks {
		ids[i] = uuid.NewString()
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: ids[i]},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: req.Vectors[i]},
				},
			},
			Payload: toQdrantPayload(req.payloadFor(i)),
		}
	}

	wait := true
	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert %d points: %v", len(points), err)
	}
	return ids, nil
}

// Search 在指定文档范围内做相似度搜索
func (r *QdrantRepository) Search(ctx context.Context, vector []float32, documentID string, limit int) ([]SearchResult, error) {
	if len(vector) == 0 {
		return nil, ErrEmptyVector
	}
	if len(vector) != r.dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, r.dimension, len(vector))
	}
	if documentID == "" {
		return nil, fmt.Errorf("document ID is required for search")
	}
	if limit <= 0 {
		limit = 4
	}

	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
		Filter: &pb.Filter{
			Must: []*pb.Condition{
				fieldMatch(MetaKeyDocumentID, documentID),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %v", err)
	}

	results := make([]SearchResult, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		sr := SearchResult{
			ID:       point.GetId().GetUuid(),
			Score:    point.GetScore(),
			Metadata: make(map[string]interface{}),
		}
		for k, val := range point.GetPayload() {
			switch k {
			case MetaKeyDocumentID:
				sr.DocumentID = val.GetStringValue()
			case MetaKeyText:
				sr.Text = val.GetStringValue()
			case MetaKeyChunkIndex:
				sr.ChunkIndex = int(val.GetIntegerValue())
			}
			sr.Metadata[k] = fromQdrantValue(val)
		}
		results = append(results, sr)
	}
	return results, nil
}

// DeleteByDocument 删除指定文档的所有分块
// 先统计再删除，返回删除前的分块数量
func (r *QdrantRepository) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	count, err := r.CountByDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}

	wait := true
	_, err = r.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{
						fieldMatch(MetaKeyDocumentID, documentID),
					},
				},
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete points for document %s: %v", documentID, err)
	}
	return count, nil
}

// CountByDocument 统计指定文档的分块数量
func (r *QdrantRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	exact := true
	resp, err := r.points.Count(ctx, &pb.CountPoints{
		CollectionName: r.collection,
		Exact:          &exact,
		Filter: &pb.Filter{
			Must: []*pb.Condition{
				fieldMatch(MetaKeyDocumentID, documentID),
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points for document %s: %v", documentID, err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Dimension 返回向量维度
func (r *QdrantRepository) Dimension() int {
	return r.dimension
}

// Close 关闭gRPC连接
func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

// toQdrantPayload 将元数据转换为Qdrant的payload格式
func toQdrantPayload(meta map[string]interface{}) map[string]*pb.Value {
	payload := make(map[string]*pb.Value, len(meta))
	for k, val := range meta {
		switch tv := val.(type) {
		case string:
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
		case int:
			payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
		case int64:
			payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
		case float64:
			payload[k] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
		case bool:
			payload[k] = &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
		default:
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
		}
	}
	return payload
}

// fromQdrantValue 将Qdrant的payload值还原为Go值
func fromQdrantValue(val *pb.Value) interface{} {
	switch kind := val.GetKind().(type) {
	case *pb.Value_StringValue:
		return kind.StringValue
	case *pb.Value_IntegerValue:
		return kind.IntegerValue
	case *pb.Value_DoubleValue:
		return kind.DoubleValue
	case *pb.Value_BoolValue:
		return kind.BoolValue
	default:
		return nil
	}
}

// fieldMatch 构造字段精确匹配条件
func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

// 在包初始化时注册Qdrant仓库
func init() {
	RegisterRepository("qdrant", NewQdrantRepository)
}
