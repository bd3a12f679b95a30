package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/calcflow"
)

// DynamoDBStore implements calcflow.RunStore using AWS DynamoDB
type DynamoDBStore struct {
	client    DynamoDBClient
	tableName string
}

var _ calcflow.RunStore = (*DynamoDBStore)(nil)

// NewDynamoDBStore creates a new DynamoDB-backed run journal
func NewDynamoDBStore(client DynamoDBClient, tableName string) *DynamoDBStore {
	return &DynamoDBStore{
		client:    client,
		tableName: tableName,
	}
}

// TableName returns the journal table
func (s *DynamoDBStore) TableName() string {
	return s.tableName
}

// Pipeline run operations

func (s *DynamoDBStore) runItem(run *calcflow.PipelineRun) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(run)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pipeline run: %w", err)
	}

	// Add keys
	item[AttrPK] = &types.AttributeValueMemberS{Value: pipelineRunPK(run.RunID)}
	item[AttrSK] = &types.AttributeValueMemberS{Value: pipelineRunSK()}
	item[AttrEntityType] = &types.AttributeValueMemberS{Value: EntityTypePipelineRun}

	// GSI keys follow the current status
	if run.PipelineID != "" {
		item[AttrGSI1PK] = &types.AttributeValueMemberS{
			Value: pipelineRunGSI1PK(run.PipelineID, string(run.Status)),
		}
		item[AttrGSI1SK] = &types.AttributeValueMemberS{
			Value: pipelineRunGSI1SK(run.CreatedAt),
		}
	}

	return item, nil
}

func (s *DynamoDBStore) CreateRun(ctx context.Context, run *calcflow.PipelineRun) error {
	item, err := s.runItem(run)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("pipeline run %s already exists", run.RunID)
		}
		return fmt.Errorf("failed to create pipeline run: %w", err)
	}

	return nil
}

func (s *DynamoDBStore) GetRun(ctx context.Context, runID string) (*calcflow.PipelineRun, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: pipelineRunPK(runID)},
			AttrSK: &types.AttributeValueMemberS{Value: pipelineRunSK()},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline run: %w", err)
	}

	if result.Item == nil {
		return nil, runNotFound(runID)
	}

	var run calcflow.PipelineRun
	if err := attributevalue.UnmarshalMap(result.Item, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pipeline run: %w", err)
	}

	return &run, nil
}

func (s *DynamoDBStore) UpdateRun(ctx context.Context, run *calcflow.PipelineRun) error {
	item, err := s.runItem(run)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return runNotFound(run.RunID)
		}
		return fmt.Errorf("failed to update pipeline run: %w", err)
	}

	return nil
}

// ListRuns queries GSI1 for a pipeline's runs, newest first.
// Without a status filter every status partition is queried and merged.
func (s *DynamoDBStore) ListRuns(ctx context.Context, filter calcflow.RunFilter) ([]*calcflow.PipelineRun, error) {
	if filter.PipelineID == "" {
		return nil, calcflow.NewInvocationError(calcflow.ErrCodeValidation, "listing runs requires a pipeline ID")
	}

	statuses := calcflow.AllRunStatuses
	if filter.Status != nil {
		statuses = []calcflow.RunStatus{*filter.Status}
	}

	runs := make([]*calcflow.PipelineRun, 0)
	for _, status := range statuses {
		page, err := s.queryRunsByStatus(ctx, filter.PipelineID, status, filter.Limit)
		if err != nil {
			return nil, err
		}
		runs = append(runs, page...)
	}

	sortRunsNewestFirst(runs)

	if filter.Limit > 0 && len(runs) > filter.Limit {
		runs = runs[:filter.Limit]
	}

	return runs, nil
}

// queryRunsByStatus reads up to limit runs (all when limit <= 0) from one GSI1 partition
func (s *DynamoDBStore) queryRunsByStatus(ctx context.Context, pipelineID string, status calcflow.RunStatus, limit int) ([]*calcflow.PipelineRun, error) {
	var runs []*calcflow.PipelineRun
	var lastEvaluatedKey map[string]types.AttributeValue

	for {
		queryInput := &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			IndexName:              aws.String(IndexStatusIndex),
			KeyConditionExpression: aws.String("GSI1PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pipelineRunGSI1PK(pipelineID, string(status))},
			},
			ScanIndexForward: aws.Bool(false),
		}
		if limit > 0 {
			queryInput.Limit = aws.Int32(int32(limit - len(runs)))
		}
		if lastEvaluatedKey != nil {
			queryInput.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := s.client.Query(ctx, queryInput)
		if err != nil {
			return nil, fmt.Errorf("failed to list pipeline runs: %w", err)
		}

		for _, item := range result.Items {
			var run calcflow.PipelineRun
			if err := attributevalue.UnmarshalMap(item, &run); err != nil {
				return nil, fmt.Errorf("failed to unmarshal pipeline run: %w", err)
			}
			runs = append(runs, &run)
		}

		if result.LastEvaluatedKey == nil || (limit > 0 && len(runs) >= limit) {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	return runs, nil
}

// Stage execution operations

// putStageExecution writes exec. Updates only overwrite an existing item.
func (s *DynamoDBStore) putStageExecution(ctx context.Context, exec *calcflow.StageExecution, update bool) error {
	item, err := attributevalue.MarshalMap(exec)
	if err != nil {
		return fmt.Errorf("failed to marshal stage execution: %w", err)
	}

	// Add keys
	item[AttrPK] = &types.AttributeValueMemberS{Value: stageExecutionPK(exec.RunID)}
	item[AttrSK] = &types.AttributeValueMemberS{Value: stageExecutionSK(exec.Index, exec.StageID)}
	item[AttrEntityType] = &types.AttributeValueMemberS{Value: EntityTypeStageExecution}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}
	op := "create"
	if update {
		op = "update"
		input.ConditionExpression = aws.String("attribute_exists(PK)")
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		if update && isConditionFailed(err) {
			return stageExecutionNotFound(exec)
		}
		return fmt.Errorf("failed to %s stage execution: %w", op, err)
	}

	return nil
}

func (s *DynamoDBStore) CreateStageExecution(ctx context.Context, exec *calcflow.StageExecution) error {
	return s.putStageExecution(ctx, exec, false)
}

func (s *DynamoDBStore) UpdateStageExecution(ctx context.Context, exec *calcflow.StageExecution) error {
	return s.putStageExecution(ctx, exec, true)
}

// ListStageExecutions returns a run's stage executions in pipeline order
func (s *DynamoDBStore) ListStageExecutions(ctx context.Context, runID string) ([]*calcflow.StageExecution, error) {
	executions := make([]*calcflow.StageExecution, 0)
	var lastEvaluatedKey map[string]types.AttributeValue

	// Paginate through all results
	for {
		queryInput := &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: stageExecutionPK(runID)},
				":sk": &types.AttributeValueMemberS{Value: stagePrefix()},
			},
		}

		if lastEvaluatedKey != nil {
			queryInput.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := s.client.Query(ctx, queryInput)
		if err != nil {
			return nil, fmt.Errorf("failed to list stage executions: %w", err)
		}

		for _, item := range result.Items {
			var exec calcflow.StageExecution
			if err := attributevalue.UnmarshalMap(item, &exec); err != nil {
				return nil, fmt.Errorf("failed to unmarshal stage execution: %w", err)
			}
			executions = append(executions, &exec)
		}

		// Check if there are more results
		if result.LastEvaluatedKey == nil {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	return executions, nil
}

// Query operations

func (s *DynamoDBStore) CountRunsByStatus(ctx context.Context, pipelineID string, status calcflow.RunStatus) (int, error) {
	count := 0
	var lastEvaluatedKey map[string]types.AttributeValue

	for {
		queryInput := &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			IndexName:              aws.String(IndexStatusIndex),
			KeyConditionExpression: aws.String("GSI1PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pipelineRunGSI1PK(pipelineID, string(status))},
			},
			Select: types.SelectCount,
		}
		if lastEvaluatedKey != nil {
			queryInput.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := s.client.Query(ctx, queryInput)
		if err != nil {
			return 0, fmt.Errorf("failed to count runs: %w", err)
		}
		count += int(result.Count)

		if result.LastEvaluatedKey == nil {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	return count, nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
