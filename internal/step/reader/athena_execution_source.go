package reader

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/tigerroll/querymetrics/internal/domain/model"
	coreConfig "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

const moduleName = "reader"

// AthenaAPI is the subset of the Athena client used by AthenaExecutionSource.
type AthenaAPI interface {
	ListQueryExecutions(ctx context.Context, params *athena.ListQueryExecutionsInput, optFns ...func(*athena.Options)) (*athena.ListQueryExecutionsOutput, error)
	BatchGetQueryExecution(ctx context.Context, params *athena.BatchGetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.BatchGetQueryExecutionOutput, error)
}

// AthenaExecutionSource implements ExecutionSource against Amazon Athena.
type AthenaExecutionSource struct {
	client     AthenaAPI
	workGroup  string
	maxResults int32
}

var _ ExecutionSource = (*AthenaExecutionSource)(nil)

// MaxListResults is the query service's ceiling on ids per listing page.
const MaxListResults = 50

// NewAthenaExecutionSource wraps client. An empty workGroup lists the caller's
// default work group. maxResults outside 1..MaxListResults leaves the page size to the service.
func NewAthenaExecutionSource(client AthenaAPI, workGroup string, maxResults int) *AthenaExecutionSource {
	s := &AthenaExecutionSource{client: client, workGroup: workGroup}
	if maxResults > 0 && maxResults <= MaxListResults {
		s.maxResults = int32(maxResults)
	}
	return s
}

// NewAthenaClient builds an Athena client from the default AWS credential chain.
func NewAthenaClient(ctx context.Context, cfg coreConfig.AthenaConfig) (*athena.Client, error) {
	var opts []func(*awsConfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsConfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load AWS config", err, false, false)
	}
	return athena.NewFromConfig(awsCfg, func(o *athena.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// ListPage implements ExecutionSource.
func (s *AthenaExecutionSource) ListPage(ctx context.Context, token string) (Page, error) {
	input := &athena.ListQueryExecutionsInput{}
	if token != "" {
		input.NextToken = aws.String(token)
	}
	if s.workGroup != "" {
		input.WorkGroup = aws.String(s.workGroup)
	}
	if s.maxResults > 0 {
		input.MaxResults = aws.Int32(s.maxResults)
	}

	out, err := s.client.ListQueryExecutions(ctx, input)
	if err != nil {
		return Page{}, exception.NewBatchError(moduleName, "failed to list query executions", err, false, exception.IsTemporary(err))
	}
	if out == nil {
		return Page{}, exception.NewBatchError(moduleName, "list query executions returned no payload", exception.ErrMalformedPayload, false, false)
	}
	return Page{IDs: out.QueryExecutionIds, NextToken: aws.ToString(out.NextToken)}, nil
}

// FetchDetails implements ExecutionSource.
func (s *AthenaExecutionSource) FetchDetails(ctx context.Context, ids []string) ([]model.QueryExecutionRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxBatchSize {
		return nil, exception.NewBatchErrorf(moduleName, "cannot fetch %d ids in one request, the limit is %d", len(ids), MaxBatchSize, exception.ErrInvalidArgument)
	}

	out, err := s.client.BatchGetQueryExecution(ctx, &athena.BatchGetQueryExecutionInput{QueryExecutionIds: ids})
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to batch get query executions", err, false, exception.IsTemporary(err))
	}
	if out == nil {
		return nil, exception.NewBatchError(moduleName, "batch get query executions returned no payload", exception.ErrMalformedPayload, false, false)
	}

	for _, u := range out.UnprocessedQueryExecutionIds {
		logger.Warnf("Query execution %s was not processed: %s %s",
			aws.ToString(u.QueryExecutionId), aws.ToString(u.ErrorCode), aws.ToString(u.ErrorMessage))
	}

	records := make([]model.QueryExecutionRecord, 0, len(out.QueryExecutions))
	var invalid InvalidRecordsError
	for _, qe := range out.QueryExecutions {
		r, err := toRecord(qe)
		if errors.Is(err, exception.ErrInvalidRecord) {
			id := aws.ToString(qe.QueryExecutionId)
			logger.Warnf("Skipping query execution %s: %v", id, err)
			invalid.add(id, err)
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if len(invalid.IDs) > 0 {
		return records, SkippedInvalid(&invalid)
	}
	return records, nil
}

// toRecord flattens an Athena QueryExecution. Missing identity or status is a
// malformed payload and aborts the fetch; a record failing validation (for
// example a DDL statement without a database) is ErrInvalidRecord. Missing statistics (not yet reported for queued queries) read as zero.
func toRecord(qe types.QueryExecution) (model.QueryExecutionRecord, error) {
	id := aws.ToString(qe.QueryExecutionId)
	if id == "" {
		return model.QueryExecutionRecord{}, exception.NewBatchError(moduleName, "query execution without an id", exception.ErrMalformedPayload, false, false)
	}
	if qe.Status == nil || qe.Status.SubmissionDateTime == nil {
		return model.QueryExecutionRecord{}, exception.NewBatchErrorf(moduleName, "query execution '%s' has no status", id, exception.ErrMalformedPayload)
	}

	f := model.RecordFields{
		ID:            id,
		StatementType: string(qe.StatementType),
		Status:        model.ExecutionStatus(qe.Status.State),
		SubmittedAt:   aws.ToTime(qe.Status.SubmissionDateTime),
		CompletedAt:   aws.ToTime(qe.Status.CompletionDateTime),
		QueryText:     aws.ToString(qe.Query),
	}
	if qe.Statistics != nil {
		f.DataScannedInBytes = aws.ToInt64(qe.Statistics.DataScannedInBytes)
		f.EngineExecutionTimeInMillis = aws.ToInt64(qe.Statistics.EngineExecutionTimeInMillis)
	}
	if qe.QueryExecutionContext != nil {
		f.Database = aws.ToString(qe.QueryExecutionContext.Database)
	}
	if rc := qe.ResultConfiguration; rc != nil {
		f.OutputLocation = aws.ToString(rc.OutputLocation)
		if ec := rc.EncryptionConfiguration; ec != nil {
			f.EncryptionOption = string(ec.EncryptionOption)
			f.KmsKey = aws.ToString(ec.KmsKey)
		}
	}

	r, err := model.NewQueryExecutionRecord(f)
	if err != nil {
		return model.QueryExecutionRecord{}, fmt.Errorf("malformed query execution: %w", err)
	}
	return r, nil
}
