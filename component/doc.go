// Package component defines the lifecycle interface shared by long-lived
// clientengine resources and a registry that starts them in order and
// stops them in reverse.
//
//	reg := component.NewRegistry()
//	_ = reg.Register(engine.NewComponent("api", factory, cfg))
//	_ = reg.StartAll(ctx)
//	defer reg.StopAll(ctx)
package component
