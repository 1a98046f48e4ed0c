package engine

import (
	"context"

	"github.com/txn2/fedquery/pkg/connector"
	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/lom"
	"github.com/txn2/fedquery/pkg/metadata"
)

// ProcedureBatchHandler shapes procedure results into rows that carry the
// result-set columns followed by one slot per output parameter.
type ProcedureBatchHandler struct {
	call          *lom.Call
	exec          connector.ProcedureExecution
	resultSetSize int
	outputTypes   []datatype.Type
}

// NewProcedureBatchHandler creates a handler for call. The return value,
// when declared, is the first output slot, followed by OUT and INOUT
// arguments in declaration order.
func NewProcedureBatchHandler(call *lom.Call, exec connector.ProcedureExecution) *ProcedureBatchHandler {
	h := &ProcedureBatchHandler{
		call:          call,
		exec:          exec,
		resultSetSize: len(call.ResultSetColumnTypes()),
	}
	if call.ReturnType != "" {
		h.outputTypes = append(h.outputTypes, call.ReturnType)
	}
	for _, arg := range call.Arguments {
		if arg.Direction == metadata.DirectionOut || arg.Direction == metadata.DirectionInOut {
			h.outputTypes = append(h.outputTypes, arg.DataType)
		}
	}
	return h
}

// ColumnTypes returns the result-set types followed by the output types.
func (h *ProcedureBatchHandler) ColumnTypes() []datatype.Type {
	types := append([]datatype.Type{}, h.call.ResultSetColumnTypes()...)
	return append(types, h.outputTypes...)
}

// Width is the padded row width.
func (h *ProcedureBatchHandler) Width() int {
	return h.resultSetSize + len(h.outputTypes)
}

// PadRow widens a result-set row with nil output parameter slots. The row
// must have exactly the declared result-set width.
func (h *ProcedureBatchHandler) PadRow(row []any) ([]any, error) {
	if len(row) != h.resultSetSize {
		return nil, connector.Errorf(connector.CodeContractViolation,
			"could not process stored procedure results for %s: expected %d result set columns, but the row has %d; the connector result set metadata does not match its results",
			lom.SQLString(h.call), h.resultSetSize, len(row))
	}
	if len(h.outputTypes) == 0 {
		return row, nil
	}
	padded := make([]any, h.Width())
	copy(padded, row)
	return padded, nil
}

// ParameterRow returns the final row holding output parameter values after
// the result-set slots. It returns nil when there are no output parameters
// and must only be called once the result set is exhausted.
func (h *ProcedureBatchHandler) ParameterRow(ctx context.Context) ([]any, error) {
	if len(h.outputTypes) == 0 {
		return nil, nil
	}
	values, err := h.exec.OutputParameterValues(ctx)
	if err != nil {
		return nil, connector.Errorf(connector.CodeExecution, "reading output parameters of %s: %w", h.call.Name, err)
	}
	if len(values) != len(h.outputTypes) {
		return nil, connector.Errorf(connector.CodeContractViolation,
			"could not process stored procedure results for %s: expected %d output values, got %d",
			lom.SQLString(h.call), len(h.outputTypes), len(values))
	}
	row := make([]any, h.Width())
	copy(row[h.resultSetSize:], values)
	return row, nil
}
