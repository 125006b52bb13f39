package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/adapters/datasource"
	"github.com/querypilot/querypilot-engine/pkg/jsonutil"
	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/sqlguard"
)

// sqlToolArgs mirrors the query-sql tool's input schema. Params are kept
// raw because models sometimes emit numbers where the schema says string.
type sqlToolArgs struct {
	SQL    string            `json:"sql"`
	Params []json.RawMessage `json:"params,omitempty"`
}

// sqlToolExecutor runs query-sql tool calls against one resolved target
// database. Statements are gated to read-only form and parameters are
// injection-checked before execution. Execution errors are returned as
// tool output so the model can correct itself and retry.
type sqlToolExecutor struct {
	executor datasource.QueryExecutor
	logger   *zap.Logger
}

func newSQLToolExecutor(executor datasource.QueryExecutor, logger *zap.Logger) *sqlToolExecutor {
	return &sqlToolExecutor{
		executor: executor,
		logger:   logger.Named("sqltool"),
	}
}

var _ llm.ToolExecutor = (*sqlToolExecutor)(nil)

func (e *sqlToolExecutor) ExecuteTool(ctx context.Context, name string, arguments string) (string, error) {
	if name != llm.SQLQueryToolName {
		return "", fmt.Errorf("unknown tool %q", name)
	}

	var args sqlToolArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid tool arguments: %w", err)
	}

	normalized, err := sqlguard.ValidateReadOnly(args.SQL)
	if err != nil {
		return "", fmt.Errorf("query rejected: %w", err)
	}

	params := make([]any, len(args.Params))
	for i, p := range args.Params {
		params[i] = jsonutil.FlexibleStringValue(p)
	}
	if hits := sqlguard.CheckAllParameters(params); len(hits) > 0 {
		return "", fmt.Errorf("parameter %d rejected: possible SQL injection (fingerprint %s)",
			hits[0].ParamIndex, hits[0].Fingerprint)
	}

	result, err := e.executor.Query(ctx, normalized, params, datasource.MaxQueryLimit)
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}

	e.logger.Debug("tool query executed",
		zap.Int("row_count", result.RowCount))

	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to serialize query result: %w", err)
	}
	return string(payload), nil
}
