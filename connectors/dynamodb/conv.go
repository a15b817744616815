package dynamodb

import (
	"fmt"

	"github.com/adiom-data/wanverify/protocol/iface"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func keyOf(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{keyAttribute: &types.AttributeValueMemberS{Value: key}}
}

func itemKey(item map[string]types.AttributeValue) (string, error) {
	var key string
	if err := attributevalue.Unmarshal(item[keyAttribute], &key); err != nil {
		return "", fmt.Errorf("bad key attribute: %w", err)
	}
	return key, nil
}

func documentToItem(key string, doc iface.Document) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return map[string]types.AttributeValue{
		keyAttribute: &types.AttributeValueMemberS{Value: key},
		docAttribute: av,
	}, nil
}

// itemToDocument unmarshals the doc attribute and brings numbers into JSON form.
func itemToDocument(item map[string]types.AttributeValue) (iface.Document, error) {
	av, ok := item[docAttribute]
	if !ok {
		return nil, fmt.Errorf("item has no %v attribute", docAttribute)
	}
	var m map[string]any
	if err := attributevalue.Unmarshal(av, &m); err != nil {
		return nil, err
	}
	return iface.Normalize(m)
}
