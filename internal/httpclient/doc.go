// Package httpclient sends the requests that make up a load test.
//
// # Request Building
//
// [NewRequestBuilder] validates the target URL and any extra headers once:
//
//	builder, err := httpclient.NewRequestBuilder(cfg.HelloURL(), cfg.Headers)
//	if err != nil {
//		return err
//	}
//
// # HTTP Client
//
// [NewClient] creates a client with a pooled keep-alive transport sized so that
// concurrent workers do not serialize on connections:
//
//	client := httpclient.NewClient(30 * time.Second)
//
// # Execution
//
// [Executor.Execute] performs one request and always returns a
// [metrics.Sample]. Requests that never produce an HTTP response are recorded
// with status code 0 and a classified error description; they are never
// retried.
//
//	exec := httpclient.NewExecutor(client, builder, tracer)
//	sample := exec.Execute(ctx)
package httpclient
