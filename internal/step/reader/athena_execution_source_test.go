package reader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/querymetrics/internal/domain/model"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
)

type mockAthena struct {
	mock.Mock
}

func (m *mockAthena) ListQueryExecutions(ctx context.Context, in *athena.ListQueryExecutionsInput, _ ...func(*athena.Options)) (*athena.ListQueryExecutionsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*athena.ListQueryExecutionsOutput)
	return out, args.Error(1)
}

func (m *mockAthena) BatchGetQueryExecution(ctx context.Context, in *athena.BatchGetQueryExecutionInput, _ ...func(*athena.Options)) (*athena.BatchGetQueryExecutionOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*athena.BatchGetQueryExecutionOutput)
	return out, args.Error(1)
}

func athenaExecution(id string, state types.QueryExecutionState) types.QueryExecution {
	submitted := time.Date(2024, 3, 17, 10, 0, 0, 0, time.UTC)
	completed := submitted.Add(2 * time.Second)
	return types.QueryExecution{
		QueryExecutionId:      aws.String(id),
		Query:                 aws.String("SELECT * FROM t"),
		StatementType:         types.StatementTypeDml,
		QueryExecutionContext: &types.QueryExecutionContext{Database: aws.String("sales")},
		ResultConfiguration: &types.ResultConfiguration{
			OutputLocation: aws.String("s3://results/" + id + ".csv"),
			EncryptionConfiguration: &types.EncryptionConfiguration{
				EncryptionOption: types.EncryptionOptionSseKms,
				KmsKey:           aws.String("arn:aws:kms:key/1"),
			},
		},
		Statistics: &types.QueryExecutionStatistics{
			DataScannedInBytes:          aws.Int64(2048),
			EngineExecutionTimeInMillis: aws.Int64(1500),
		},
		Status: &types.QueryExecutionStatus{
			State:              state,
			SubmissionDateTime: &submitted,
			CompletionDateTime: &completed,
		},
	}
}

func TestAthenaExecutionSource_ListPage(t *testing.T) {
	m := &mockAthena{}
	m.On("ListQueryExecutions", mock.Anything, mock.MatchedBy(func(in *athena.ListQueryExecutionsInput) bool {
		return in.NextToken == nil && aws.ToString(in.WorkGroup) == "primary" && aws.ToInt32(in.MaxResults) == 50
	})).Return(&athena.ListQueryExecutionsOutput{
		QueryExecutionIds: []string{"c", "b", "a"},
		NextToken:         aws.String("tok-2"),
	}, nil).Once()

	src := NewAthenaExecutionSource(m, "primary", 50)
	page, err := src.ListPage(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, Page{IDs: []string{"c", "b", "a"}, NextToken: "tok-2"}, page)
	m.AssertExpectations(t)
}

func TestAthenaExecutionSource_ListPageLeavesOutOfRangeSizeToService(t *testing.T) {
	for _, n := range []int{-1, 51, 1 << 20} {
		m := &mockAthena{}
		m.On("ListQueryExecutions", mock.Anything, mock.MatchedBy(func(in *athena.ListQueryExecutionsInput) bool {
			return in.MaxResults == nil
		})).Return(&athena.ListQueryExecutionsOutput{}, nil).Once()

		_, err := NewAthenaExecutionSource(m, "", n).ListPage(context.Background(), "")
		require.NoError(t, err)
		m.AssertExpectations(t)
	}
}

func TestAthenaExecutionSource_ListPageError(t *testing.T) {
	m := &mockAthena{}
	m.On("ListQueryExecutions", mock.Anything, mock.Anything).Return(nil, errors.New("AccessDenied")).Once()

	_, err := NewAthenaExecutionSource(m, "", 0).ListPage(context.Background(), "tok")
	require.Error(t, err)
	assert.True(t, exception.IsFatal(err))
}

func TestAthenaExecutionSource_FetchDetails(t *testing.T) {
	m := &mockAthena{}
	m.On("BatchGetQueryExecution", mock.Anything, &athena.BatchGetQueryExecutionInput{QueryExecutionIds: []string{"a", "b"}}).
		Return(&athena.BatchGetQueryExecutionOutput{
			QueryExecutions: []types.QueryExecution{
				athenaExecution("a", types.QueryExecutionStateSucceeded),
				athenaExecution("b", types.QueryExecutionStateRunning),
			},
			UnprocessedQueryExecutionIds: []types.UnprocessedQueryExecutionId{
				{QueryExecutionId: aws.String("z"), ErrorCode: aws.String("InvalidRequest")},
			},
		}, nil).Once()

	records, err := NewAthenaExecutionSource(m, "", 0).FetchDetails(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, records, 2)

	a := records[0]
	assert.Equal(t, "a", a.ID)
	assert.Equal(t, "sales", a.Database)
	assert.Equal(t, "DML", a.StatementType)
	assert.Equal(t, int64(2048), a.DataScannedInBytes)
	assert.Equal(t, int64(1500), a.EngineExecutionTimeInMillis)
	assert.Equal(t, model.StatusSucceeded, a.Status)
	assert.Equal(t, "SSE_KMS", a.Encryption.Option)
	assert.Equal(t, "arn:aws:kms:key/1", a.Encryption.KmsKey)
	assert.Equal(t, "2024-03-01", a.BillingPeriod())
	assert.Equal(t, model.StatusRunning, records[1].Status)
	m.AssertExpectations(t)
}

func TestAthenaExecutionSource_FetchDetailsMalformed(t *testing.T) {
	noStatus := athenaExecution("a", types.QueryExecutionStateSucceeded)
	noStatus.Status = nil
	noID := athenaExecution("", types.QueryExecutionStateSucceeded)

	for name, qe := range map[string]types.QueryExecution{"no status": noStatus, "no id": noID} {
		t.Run(name, func(t *testing.T) {
			m := &mockAthena{}
			m.On("BatchGetQueryExecution", mock.Anything, mock.Anything).
				Return(&athena.BatchGetQueryExecutionOutput{QueryExecutions: []types.QueryExecution{
					athenaExecution("ok", types.QueryExecutionStateSucceeded), qe,
				}}, nil)

			records, err := NewAthenaExecutionSource(m, "", 0).FetchDetails(context.Background(), []string{"ok", "a"})
			require.Error(t, err)
			assert.ErrorIs(t, err, exception.ErrMalformedPayload)
			assert.True(t, exception.IsFatal(err))
			assert.Nil(t, records)
		})
	}
}

func TestAthenaExecutionSource_FetchDetailsSkipsInvalidRecords(t *testing.T) {
	noDatabase := athenaExecution("show-dbs", types.QueryExecutionStateSucceeded)
	noDatabase.QueryExecutionContext = nil
	negative := athenaExecution("negative", types.QueryExecutionStateSucceeded)
	negative.Statistics.DataScannedInBytes = aws.Int64(-1)

	m := &mockAthena{}
	m.On("BatchGetQueryExecution", mock.Anything, mock.Anything).
		Return(&athena.BatchGetQueryExecutionOutput{QueryExecutions: []types.QueryExecution{
			athenaExecution("a", types.QueryExecutionStateSucceeded),
			noDatabase,
			athenaExecution("b", types.QueryExecutionStateRunning),
			negative,
		}}, nil)

	records, err := NewAthenaExecutionSource(m, "", 0).FetchDetails(context.Background(), []string{"a", "show-dbs", "b", "negative"})
	require.Error(t, err)
	assert.True(t, exception.IsSkippable(err))
	assert.ErrorIs(t, err, exception.ErrInvalidRecord)
	assert.Equal(t, []string{"show-dbs", "negative"}, InvalidRecordIDs(err))

	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
}

func TestAthenaExecutionSource_FetchDetailsLimits(t *testing.T) {
	m := &mockAthena{}
	src := NewAthenaExecutionSource(m, "", 0)

	records, err := src.FetchDetails(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, records)

	_, err = src.FetchDetails(context.Background(), ids(51))
	assert.ErrorIs(t, err, exception.ErrInvalidArgument)
	m.AssertNotCalled(t, "BatchGetQueryExecution", mock.Anything, mock.Anything)
}
