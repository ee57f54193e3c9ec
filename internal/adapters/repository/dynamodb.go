package repository

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Attribute names of the slot item. The table's partition key is "pk" (S);
// "expires_at" can be enabled as the table's TTL attribute.
const (
	ddbKeyAttr = "pk"
	ddbExpires = "expires_at"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoStore keeps the slot as one item keyed by the configured key.
type DynamoStore struct {
	client DynamoDBAPI
	table  string
	opts   options
	now    func() time.Time
}

// NewDynamoClient builds a client from a dynamodb://<table>?region=..&endpoint=.. url.
// It returns the client and the table name.
func NewDynamoClient(ctx context.Context, rawURL string) (*dynamodb.Client, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse dynamodb url: %w", err)
	}
	table := u.Host
	if table == "" {
		return nil, "", fmt.Errorf("%w: dynamodb url needs a table name", ErrUnsupportedStore)
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if region := u.Query().Get("region"); region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, "", fmt.Errorf("%w: load aws config: %v", ErrStoreUnavailable, err)
	}

	endpoint := u.Query().Get("endpoint")
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return client, table, nil
}

// NewDynamoStore wraps an existing client.
func NewDynamoStore(client DynamoDBAPI, table string, opts ...Option) *DynamoStore {
	return &DynamoStore{client: client, table: table, opts: buildOptions(opts), now: time.Now}
}

// Write puts the whole slot item in one request.
func (s *DynamoStore) Write(ctx context.Context, slot Slot) error {
	r := toRecord(slot)
	item := map[string]types.AttributeValue{
		ddbKeyAttr:    &types.AttributeValueMemberS{Value: s.opts.key},
		"job":         &types.AttributeValueMemberS{Value: r.JobID},
		"name":        &types.AttributeValueMemberS{Value: r.Name},
		"ms":          &types.AttributeValueMemberN{Value: strconv.FormatFloat(r.MS, 'f', -1, 64)},
		"players":     &types.AttributeValueMemberS{Value: r.Players},
		"observed_at": &types.AttributeValueMemberN{Value: strconv.FormatInt(r.ObservedAt, 10)},
		"written_at":  &types.AttributeValueMemberN{Value: strconv.FormatInt(r.WrittenAt, 10)},
		ddbExpires:    &types.AttributeValueMemberN{Value: strconv.FormatInt(s.now().Add(s.opts.expiry).Unix(), 10)},
	}
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("%w: dynamodb put %s: %v", ErrStoreUnavailable, s.table, err)
	}
	return nil
}

// Read gets the slot item with a strongly consistent read.
func (s *DynamoStore) Read(ctx context.Context) (Slot, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            map[string]types.AttributeValue{ddbKeyAttr: &types.AttributeValueMemberS{Value: s.opts.key}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Slot{}, false, fmt.Errorf("%w: dynamodb get %s: %v", ErrStoreUnavailable, s.table, err)
	}
	if out == nil || len(out.Item) == 0 {
		return Slot{}, false, nil
	}

	var r slotRecord
	var perr error
	r.JobID = attrString(out.Item, "job")
	r.Name = attrString(out.Item, "name")
	r.Players = attrString(out.Item, "players")
	if r.MS, perr = attrFloat(out.Item, "ms"); perr != nil {
		return Slot{}, false, perr
	}
	if r.ObservedAt, perr = attrInt(out.Item, "observed_at"); perr != nil {
		return Slot{}, false, perr
	}
	if r.WrittenAt, perr = attrInt(out.Item, "written_at"); perr != nil {
		return Slot{}, false, perr
	}
	return r.slot(), true, nil
}

// Backend implements Store.
func (s *DynamoStore) Backend() string { return "dynamodb" }

// Close implements Store; the SDK client holds no resources to release.
func (s *DynamoStore) Close() error { return nil }

func attrString(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func attrNumber(item map[string]types.AttributeValue, name string) (string, error) {
	v, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return "", fmt.Errorf("%w: attribute %s is not a number", ErrCorruptSlot, name)
	}
	return v.Value, nil
}

func attrFloat(item map[string]types.AttributeValue, name string) (float64, error) {
	raw, err := attrNumber(item, name)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: attribute %s: %v", ErrCorruptSlot, name, err)
	}
	return f, nil
}

func attrInt(item map[string]types.AttributeValue, name string) (int64, error) {
	raw, err := attrNumber(item, name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: attribute %s: %v", ErrCorruptSlot, name, err)
	}
	return n, nil
}
