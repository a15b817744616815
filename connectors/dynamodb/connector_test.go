//go:build external
// +build external

package dynamodb

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/adiom-data/wanverify/pkg/test"
	"github.com/adiom-data/wanverify/protocol/iface"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/suite"
)

const (
	DynamoEnvironmentVariable = "DYNAMODB_TEST"
)

// DYNAMODB_TEST holds the endpoint part of the connection string, e.g. "localstack" or "localhost:8000".
func TestDynamoDBStoreSuite(t *testing.T) {
	connStr, ok := os.LookupEnv(DynamoEnvironmentVariable)
	if !ok {
		connStr = "localstack"
	}
	tableName := "wanverify_trades"
	ctx := context.Background()
	client, err := AWSClientHelper(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}

	tSuite := test.NewStoreTestSuite(tableName, func() iface.Store {
		return NewStoreWithClient(client)
	}, func(ctx context.Context) error {
		_, err := client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
			TableName: aws.String(tableName),
		})
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if !errors.As(err, &notFound) {
				return err
			}
			return nil
		}
		waiter := dynamodb.NewTableNotExistsWaiter(client)
		return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)}, tableCreateTimeout)
	})
	suite.Run(t, tSuite)
}
