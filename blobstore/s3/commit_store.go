package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/cosmoweb/blobstore"
)

// CurrentName is the virtual blob holding the manifest key of the latest
// committed run.
const CurrentName = "CURRENT"

// ErrConcurrentCommit is returned when another publisher committed a run
// between reading and writing the CURRENT pointer.
var ErrConcurrentCommit = errors.New("concurrent run commit detected")

// DDBClient is the subset of the DynamoDB API the commit store uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// CommitStore layers atomic run commits over an S3 artifact store. S3
// has no compare-and-swap, so the CURRENT pointer lives in a DynamoDB
// table instead: each commit is a conditional put of the next version
// number, and concurrent publishers lose cleanly instead of overwriting
// each other.
//
// Table schema:
//   - Partition key: run_scope (string), the store's base URI
//   - Sort key: version (number), monotonically increasing
//   - Attribute: manifest_key (string), the committed run manifest
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name cosmoweb-runs \
//	  --attribute-definitions AttributeName=run_scope,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=run_scope,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	store     *Store
	ddb       DDBClient
	tableName string
	scope     string
}

// NewCommitStore wraps an S3 store with DynamoDB-coordinated commits.
// scope identifies the artifact tree, conventionally "s3://bucket/prefix".
func NewCommitStore(store *Store, ddb DDBClient, tableName, scope string) *CommitStore {
	return &CommitStore{
		store:     store,
		ddb:       ddb,
		tableName: tableName,
		scope:     scope,
	}
}

// Open opens a blob. CURRENT resolves through DynamoDB to the manifest
// key of the latest committed run.
func (s *CommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name == CurrentName {
		version, manifestKey, err := s.latest(ctx)
		if err != nil {
			return nil, err
		}
		if version == 0 {
			return nil, blobstore.ErrNotFound
		}
		return &pointerBlob{content: []byte(manifestKey)}, nil
	}
	return s.store.Open(ctx, name)
}

// Put writes a blob. Writing CURRENT commits the payload as the manifest
// key of a new run version.
func (s *CommitStore) Put(ctx context.Context, name string, data []byte) error {
	if name == CurrentName {
		return s.commit(ctx, string(data))
	}
	return s.store.Put(ctx, name, data)
}

// Create creates a streaming blob; CURRENT cannot be streamed.
func (s *CommitStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if name == CurrentName {
		return nil, fmt.Errorf("s3: %s must be written with Put", CurrentName)
	}
	return s.store.Create(ctx, name)
}

// Delete deletes a blob from the underlying store.
func (s *CommitStore) Delete(ctx context.Context, name string) error {
	return s.store.Delete(ctx, name)
}

// List lists blobs in the underlying store.
func (s *CommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.store.List(ctx, prefix)
}

// latest returns the highest committed version and its manifest key, or
// version 0 when nothing has been committed yet.
func (s *CommitStore) latest(ctx context.Context) (uint64, string, error) {
	resp, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("run_scope = :scope"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":scope": &types.AttributeValueMemberS{Value: s.scope},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("s3: query commit table: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("s3: malformed version attribute in commit table")
	}
	keyAttr, ok := item["manifest_key"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("s3: malformed manifest_key attribute in commit table")
	}

	var version uint64
	if _, err := fmt.Sscanf(versionAttr.Value, "%d", &version); err != nil {
		return 0, "", fmt.Errorf("s3: parse commit version: %w", err)
	}
	return version, keyAttr.Value, nil
}

// commit conditionally writes the next version. The condition fails when
// another publisher claimed the same version first.
func (s *CommitStore) commit(ctx context.Context, manifestKey string) error {
	current, _, err := s.latest(ctx)
	if err != nil {
		return err
	}

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"run_scope":    &types.AttributeValueMemberS{Value: s.scope},
			"version":      &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", current+1)},
			"manifest_key": &types.AttributeValueMemberS{Value: manifestKey},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentCommit
		}
		return fmt.Errorf("s3: commit run version: %w", err)
	}
	return nil
}

// pointerBlob serves the CURRENT content from memory.
type pointerBlob struct {
	content []byte
}

func (b *pointerBlob) Size() int64 { return int64(len(b.content)) }

func (b *pointerBlob) Close() error { return nil }

func (b *pointerBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off >= int64(len(b.content)) {
		return 0, io.EOF
	}
	n := copy(p, b.content[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *pointerBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= int64(len(b.content)) {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	end := off + length
	if end > int64(len(b.content)) {
		end = int64(len(b.content))
	}
	return io.NopCloser(bytes.NewReader(b.content[off:end])), nil
}
