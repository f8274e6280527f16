// Command noxy-plugin-dynamodb is the DynamoDB-backed process behind
// Bauble's kv_get/kv_put/kv_new_id natives. It speaks the same
// newline-delimited JSON-RPC protocol internal/plugin.Client drives,
// adapted from the teacher interpreter's identically named cmd binary
// but narrowed to a single fixed key/value table schema, since Bauble
// values have no map type to marshal arbitrary item shapes with.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// Request/Response mirror internal/plugin.Request/Response exactly;
// they are redeclared here rather than imported so this binary has no
// compile-time dependency on the interpreter module.
type Request struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

type Response struct {
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

type item struct {
	PK    string `dynamodbav:"pk"`
	Value string `dynamodbav:"value"`
}

type server struct {
	client *dynamodb.Client
	table  string
}

func main() {
	table := flag.String("table", "bauble-kv", "DynamoDB table name backing kv_get/kv_put")
	region := flag.String("region", "us-east-1", "AWS region")
	flag.Parse()

	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(*region))
	if err != nil {
		fmt.Fprintf(os.Stderr, "noxy-plugin-dynamodb: load aws config: %v\n", err)
		os.Exit(1)
	}

	s := &server{client: dynamodb.NewFromConfig(cfg), table: *table}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	encoder := json.NewEncoder(os.Stdout)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req Request
		resp := Response{}
		if err := json.Unmarshal(line, &req); err != nil {
			resp.Error = fmt.Sprintf("parse error: %v", err)
		} else {
			result, err := s.handle(req)
			if err != nil {
				resp.Error = err.Error()
			} else {
				resp.Result = result
			}
		}
		if err := encoder.Encode(resp); err != nil {
			fmt.Fprintf(os.Stderr, "noxy-plugin-dynamodb: encode response: %v\n", err)
		}
	}
}

func (s *server) handle(req Request) (interface{}, error) {
	switch req.Method {
	case "kv_get":
		return s.get(req.Params)
	case "kv_put":
		return s.put(req.Params)
	case "kv_new_id":
		return uuid.New().String(), nil
	default:
		return nil, fmt.Errorf("unknown method: %s", req.Method)
	}
}

func (s *server) get(params []interface{}) (interface{}, error) {
	key, ok := paramString(params, 0)
	if !ok {
		return nil, fmt.Errorf("kv_get expects a string key")
	}
	av, err := attributevalue.MarshalMap(item{PK: key})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	out, err := s.client.GetItem(context.Background(), &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       map[string]types.AttributeValue{"pk": av["pk"]},
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}
	var found item
	if err := attributevalue.UnmarshalMap(out.Item, &found); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return found.Value, nil
}

func (s *server) put(params []interface{}) (interface{}, error) {
	key, ok := paramString(params, 0)
	if !ok {
		return nil, fmt.Errorf("kv_put expects a string key")
	}
	val, ok := paramString(params, 1)
	if !ok {
		return nil, fmt.Errorf("kv_put expects a string value")
	}
	av, err := attributevalue.MarshalMap(item{PK: key, Value: val})
	if err != nil {
		return nil, fmt.Errorf("marshal item: %w", err)
	}
	if _, err := s.client.PutItem(context.Background(), &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	}); err != nil {
		return nil, err
	}
	return true, nil
}

func paramString(params []interface{}, i int) (string, bool) {
	if i >= len(params) {
		return "", false
	}
	s, ok := params[i].(string)
	return s, ok
}
