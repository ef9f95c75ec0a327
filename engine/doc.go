// Package engine builds asynchronous HTTP client engines from a declarative
// ClientConfiguration.
//
// A Factory translates each configuration setting into the matching
// transport.Client setting, in a fixed order, and wraps the started client
// into an Engine together with the read timeout and connection TTL:
//
//	f, err := engine.NewFactory(engine.WithLogger(log))
//	eng, err := f.Build(engine.ClientConfiguration{
//		ConnectionTimeout: 500,
//		ProxyHost:         "proxy.local",
//		ProxyPort:         8080,
//		ProxyScheme:       "http",
//		FollowRedirects:   true,
//	})
//	defer eng.Close(ctx)
//
//	resp, err := eng.Do(ctx, req)
//
// Build never validates the configuration itself; a setting the transport
// rejects surfaces as the transport's error, unchanged.
package engine
