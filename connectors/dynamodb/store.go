package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/adiom-data/wanverify/protocol/iface"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	keyAttribute = "id"
	docAttribute = "doc"

	tableCreateTimeout = 2 * time.Minute
)

// Endpoint resolves the endpoint part of a dynamodb connection string.
// "" uses the AWS default, "localstack" uses AWS_ENDPOINT_URL or the localstack default port.
func Endpoint(connStr string) string {
	switch connStr {
	case "":
		return ""
	case "localstack":
		if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
			return endpoint
		}
		return "http://localhost:4566"
	default:
		return "http://" + connStr
	}
}

func AWSClientHelper(ctx context.Context, connStr string) (*dynamodb.Client, error) {
	endpoint := Endpoint(connStr)
	awsConfig, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(awsConfig, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// store maps datasets to tables with a string hash key "id" and the record in "doc".
type store struct {
	client *dynamodb.Client
}

func NewStore(ctx context.Context, connStr string) (*store, error) {
	client, err := AWSClientHelper(ctx, connStr)
	if err != nil {
		return nil, err
	}
	return NewStoreWithClient(client), nil
}

func NewStoreWithClient(client *dynamodb.Client) *store {
	return &store{client: client}
}

func (s *store) Open(ctx context.Context, dataset string) (iface.Session, error) {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(dataset)})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %v", iface.ErrDatasetNotFound, dataset)
		}
		return nil, err
	}
	return &session{client: s.client, table: dataset}, nil
}

func (s *store) EnsureDataset(ctx context.Context, dataset string) error {
	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(dataset),
		KeySchema: []types.KeySchemaElement{{
			AttributeName: aws.String(keyAttribute),
			KeyType:       types.KeyTypeHash,
		}},
		AttributeDefinitions: []types.AttributeDefinition{{
			AttributeName: aws.String(keyAttribute),
			AttributeType: types.ScalarAttributeTypeS,
		}},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return err
		}
	}
	waiter := dynamodb.NewTableExistsWaiter(s.client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(dataset)}, tableCreateTimeout)
}

func (s *store) Teardown() {}

type session struct {
	client *dynamodb.Client
	table  string

	mut    sync.Mutex
	closed bool
}

func (sess *session) check() error {
	sess.mut.Lock()
	defer sess.mut.Unlock()
	if sess.closed {
		return iface.ErrSessionClosed
	}
	return nil
}

func (sess *session) Keys(ctx context.Context) ([]string, error) {
	if err := sess.check(); err != nil {
		return nil, err
	}
	paginator := dynamodb.NewScanPaginator(sess.client, &dynamodb.ScanInput{
		TableName:                aws.String(sess.table),
		ConsistentRead:           aws.Bool(true),
		ProjectionExpression:     aws.String("#k"),
		ExpressionAttributeNames: map[string]string{"#k": keyAttribute},
	})
	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			key, err := itemKey(item)
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (sess *session) Get(ctx context.Context, key string) (iface.Document, bool, error) {
	if err := sess.check(); err != nil {
		return nil, false, err
	}
	res, err := sess.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(sess.table),
		Key:            keyOf(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, err
	}
	if res.Item == nil {
		return nil, false, nil
	}
	doc, err := itemToDocument(res.Item)
	if err != nil {
		return nil, false, fmt.Errorf("key %v: %w", key, err)
	}
	return doc, true, nil
}

func (sess *session) Put(ctx context.Context, key string, doc iface.Document) error {
	if err := sess.check(); err != nil {
		return err
	}
	item, err := documentToItem(key, doc)
	if err != nil {
		return err
	}
	_, err = sess.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(sess.table),
		Item:      item,
	})
	return err
}

func (sess *session) Delete(ctx context.Context, key string) (bool, error) {
	if err := sess.check(); err != nil {
		return false, err
	}
	res, err := sess.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(sess.table),
		Key:          keyOf(key),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, err
	}
	return len(res.Attributes) > 0, nil
}

func (sess *session) Close(_ context.Context) error {
	sess.mut.Lock()
	defer sess.mut.Unlock()
	sess.closed = true
	return nil
}
