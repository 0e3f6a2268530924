package pipeline

import "context"

// Stage is a typed pipeline step. The orchestrator composes stages explicitly
// per job kind so each flow reads top to bottom; there is no generic DAG.
type Stage[In, Out any] func(ctx context.Context, in In) (Out, error)
