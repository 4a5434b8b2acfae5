// Package svcwrap runs an arbitrary executable as a service of the host's
// own service manager, without spawning it as a child of the caller.
//
// A Descriptor names the service and points at the target executable:
//
//	d, err := svcwrap.Build("tcp_echo", "executables/tcp_echo.exe", []string{"-p", "30222"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// A Controller registers it as an on-demand service whose binary is a small
// helper executable, and starts it with the target path and arguments as
// start arguments. The helper spawns the target; the service manager
// supervises the helper.
//
//	c := svcwrap.New()
//	if err := c.Create(ctx, d); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Delete(ctx, d)
//
// # Lifecycle and failures
//
// Create and Delete are single-shot. Create fails if the name is already
// registered (errors.Is(err, ErrServiceExists)); Delete fails if it is not
// (errors.Is(err, ErrServiceNotFound)). Nothing is retried and nothing is
// rolled back: a Create that registered the service but failed to start it
// leaves the registration in place until Delete is called.
//
// The service manager is the only source of truth for whether a service is
// running; the Controller caches nothing between calls.
//
// # Platforms
//
// The Windows Service Control Manager binding (SCM) is the reference
// implementation. On Linux, Systemd maps the same lifecycle onto unit files
// and systemctl. MockPlatform implements the registry rules in memory for
// tests.
//
// Every failure is an *OpError whose Kind tells path resolution (KindIO),
// configuration (KindConfig) and service manager (KindPlatform) failures
// apart. The one exception is a done context: the Controller returns
// ctx.Err() as is, so errors.Is(err, context.Canceled) and
// errors.Is(err, context.DeadlineExceeded) work directly.
package svcwrap
