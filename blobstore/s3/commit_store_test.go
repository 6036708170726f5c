package s3

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cosmoweb/blobstore"
)

// mockDDBClient is an in-memory DynamoDB stand-in that honors the
// conditional-put semantics the commit store relies on.
type mockDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]types.AttributeValue
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{items: make(map[string]map[string]types.AttributeValue)}
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scope := params.Item["run_scope"].(*types.AttributeValueMemberS).Value
	version := params.Item["version"].(*types.AttributeValueMemberN).Value
	key := scope + ":" + version

	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(version)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}
	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scope := params.ExpressionAttributeValues[":scope"].(*types.AttributeValueMemberS).Value

	var items []map[string]types.AttributeValue
	for _, item := range m.items {
		if item["run_scope"].(*types.AttributeValueMemberS).Value == scope {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		vi := items[i]["version"].(*types.AttributeValueMemberN).Value
		vj := items[j]["version"].(*types.AttributeValueMemberN).Value
		if len(vi) != len(vj) {
			return len(vi) > len(vj)
		}
		return vi > vj
	})
	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func newCommitStoreUnderTest(ddb DDBClient) *CommitStore {
	store := NewStore(new(MockS3Client), "test-bucket", "cosmoweb")
	return NewCommitStore(store, ddb, "cosmoweb-runs", "s3://test-bucket/cosmoweb")
}

func TestCommitStoreCurrentLifecycle(t *testing.T) {
	ctx := context.Background()
	cs := newCommitStoreUnderTest(newMockDDBClient())

	// Nothing committed yet.
	_, err := cs.Open(ctx, CurrentName)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, cs.Put(ctx, CurrentName, []byte("runs/001/manifest.json")))

	got, err := blobstore.ReadAll(ctx, cs, CurrentName)
	require.NoError(t, err)
	assert.Equal(t, "runs/001/manifest.json", string(got))

	// A second commit supersedes the first.
	require.NoError(t, cs.Put(ctx, CurrentName, []byte("runs/002/manifest.json")))
	got, err = blobstore.ReadAll(ctx, cs, CurrentName)
	require.NoError(t, err)
	assert.Equal(t, "runs/002/manifest.json", string(got))
}

// staleReadDDB wraps a DDB client so Query never sees prior commits,
// simulating two publishers that both read version 0.
type staleReadDDB struct {
	DDBClient
}

func (s *staleReadDDB) Query(_ context.Context, _ *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{}, nil
}

func TestCommitStoreDetectsConcurrentCommit(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()

	a := newCommitStoreUnderTest(ddb)
	b := newCommitStoreUnderTest(&staleReadDDB{DDBClient: ddb})

	require.NoError(t, a.Put(ctx, CurrentName, []byte("runs/a/manifest.json")))

	// b read before a committed, so its conditional put targets the same
	// version and must lose.
	err := b.Put(ctx, CurrentName, []byte("runs/b/manifest.json"))
	assert.ErrorIs(t, err, ErrConcurrentCommit)
}

func TestCommitStoreCurrentCannotStream(t *testing.T) {
	cs := newCommitStoreUnderTest(newMockDDBClient())
	_, err := cs.Create(context.Background(), CurrentName)
	assert.Error(t, err)
}
