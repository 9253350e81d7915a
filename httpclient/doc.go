// Package httpclient provides the HTTP transport used by storage calls: an
// *http.Client whose RoundTripper is an explicit, ordered pipeline of
// decorators.
//
// # Features
//
//   - Per-exchange identity (operation name, X-Request-ID) and an ExchangeLog
//   - Content capture of raw request/response bodies for diagnostics
//   - Structured zerolog logging at None, Basic, Headers or Body level
//   - OpenTelemetry tracing and metrics with network timing events
//   - Circuit breaking via gobreaker, optionally shared through Redis
//   - Client-level rate limiting
//
// # Quick Start
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("http://localhost:9200"),
//	    httpclient.WithServiceName("span-store"),
//	)
//
//	ctx = httpclient.WithOperationName(ctx, "get-service-names")
//	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, client.BaseURL()+"/_cat/indices", nil)
//	resp, err := client.HTTP().Do(req)
//
// # Pipeline
//
// Stages run outermost first:
//
//	naming → logging → content-capture → decorators → interceptors →
//	rate limit → circuit breaker → instrumentation → base transport
//
// Logging wraps content capture so it can read both captured bodies from
// the ExchangeLog once the exchange completes. Every stage forwards status,
// headers and body bytes unchanged unless changing them is its purpose.
//
// Custom pipelines can be assembled directly:
//
//	rt := httpclient.Chain(http.DefaultTransport,
//	    httpclient.Naming(),
//	    httpclient.Logging(logger, httpclient.LoggingBody),
//	    httpclient.ContentCapture(),
//	)
//
// # Diagnostics
//
// Attach an ExchangeLog to read what was sent and received:
//
//	log := httpclient.NewExchangeLog()
//	resp, err := client.HTTP().Do(req.WithContext(httpclient.WithExchangeLog(ctx, log)))
//	if content, ok := log.ResponseContent(); ok {
//	    fmt.Println(log.ID(), log.StatusCode(), content)
//	}
//
// # Configuration Presets
//
//	client := httpclient.New(httpclient.WithConfig(httpclient.HighThroughputConfig()))
//	client := httpclient.New(httpclient.WithConfig(httpclient.LowLatencyConfig()))
//	client := httpclient.New(httpclient.WithConfig(httpclient.ConservativeConfig()))
//
// # Circuit Breaker
//
//	client := httpclient.New(
//	    httpclient.WithServiceName("span-store"),
//	    httpclient.WithBreaker(httpclient.DefaultBreakerConfig()),
//	)
//
// Open-breaker rejections satisfy IsBreakerOpen.
//
// # Testing
//
// MockTransport scripts responses without a network:
//
//	mock := httpclient.NewMockTransport().StubJSON(200, `{"status":"green"}`)
//	client := httpclient.New(httpclient.WithMockTransport(mock))
package httpclient
