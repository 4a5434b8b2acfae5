package svcwrap

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Controller registers, starts, queries and removes services described by
// Descriptors. It keeps no state between calls: every call opens fresh
// handles on the platform and closes them before returning, so a Controller
// may be shared between goroutines.
type Controller struct {
	platform Platform
	config   Config
	logger   logrus.FieldLogger
	metrics  *Metrics
}

var _ Wrapper = (*Controller)(nil)

// Option configures a Controller
type Option func(*Controller)

// WithPlatform sets the service manager binding
func WithPlatform(p Platform) Option {
	return func(c *Controller) {
		c.platform = p
	}
}

// WithConfig sets the configuration; zero fields take their defaults.
// Create and Delete validate it first and fail with a KindConfig error
// while it is invalid.
func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		c.config = cfg.withDefaults()
	}
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// New creates a Controller for the platform's native service manager,
// unless WithPlatform says otherwise
func New(opts ...Option) *Controller {
	c := &Controller{
		config: DefaultConfig(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.platform == nil {
		c.platform = DefaultPlatform()
	}
	if c.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.logger = l
	}

	return c
}

// Config returns the configuration in effect
func (c *Controller) Config() Config {
	return c.config
}

// Platform returns the service manager binding
func (c *Controller) Platform() Platform {
	return c.platform
}

// Create registers d as an on-demand service whose executable is the helper,
// then starts it with d's path and arguments as start arguments. Steps that
// succeeded are not rolled back when a later one fails: call Delete to remove
// a registration left behind by a failed Create.
func (c *Controller) Create(ctx context.Context, d Descriptor) (err error) {
	defer func(start time.Time) { c.metrics.observe(OpCreate, start, err) }(time.Now())
	log := c.logger.WithFields(logrus.Fields{"service": d.Name(), "path": d.Path()})

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.config.Validate(); err != nil {
		return err
	}

	m, err := c.platform.Connect(ManagerConnect | ManagerCreateService)
	if err != nil {
		return platformError(OpConnect, d.Name(), err)
	}
	defer closeQuietly(log, m)

	helper, err := c.resolveHelper(d.Name())
	if err != nil {
		return err
	}
	log = log.WithField("helper", helper)

	rec := ServiceRecord{
		Name:           d.Name(),
		DisplayName:    d.Name(),
		StartType:      StartOnDemand,
		ErrorControl:   ErrorControlNormal,
		ExecutablePath: helper,
	}
	log.Debug("registering service")
	if err := c.register(m, rec); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	h, err := m.OpenService(d.Name(), AccessStart)
	if err != nil {
		return platformError(OpOpen, d.Name(), err)
	}
	defer closeQuietly(log, h)

	log.WithField("args", d.Args()).Debug("starting service")
	if err := h.Start(d.launchArgs()...); err != nil {
		return platformError(OpStart, d.Name(), err)
	}

	log.Info("service created")
	return nil
}

// register creates the entry and attaches its description. The creation
// handle is released before the start handle is opened.
func (c *Controller) register(m ServiceManager, rec ServiceRecord) error {
	h, err := m.CreateService(rec, AccessChangeConfig)
	if err != nil {
		return platformError(OpCreate, rec.Name, err)
	}
	defer closeQuietly(c.logger, h)

	if err := h.SetDescription(DescriptionPrefix + rec.Name); err != nil {
		return platformError(OpDescribe, rec.Name, err)
	}
	return nil
}

// Delete stops the service if it is not already stopped, waits for it to
// settle and deletes the registration. Deleting a name that is not
// registered fails with ErrServiceNotFound in the chain. A failed stop
// request returns without deleting.
func (c *Controller) Delete(ctx context.Context, d Descriptor) (err error) {
	defer func(start time.Time) { c.metrics.observe(OpDelete, start, err) }(time.Now())
	log := c.logger.WithField("service", d.Name())

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.config.Validate(); err != nil {
		return err
	}

	m, err := c.platform.Connect(ManagerConnect)
	if err != nil {
		return platformError(OpConnect, d.Name(), err)
	}
	defer closeQuietly(log, m)

	h, err := m.OpenService(d.Name(), AccessQueryStatus|AccessStop|AccessDelete)
	if err != nil {
		return platformError(OpOpen, d.Name(), err)
	}
	defer closeQuietly(log, h)

	state, err := h.Query()
	if err != nil {
		return platformError(OpQuery, d.Name(), err)
	}

	if state != StateStopped {
		log.WithField("state", state).Debug("stopping service")
		if err := h.Stop(); err != nil {
			return platformError(OpStop, d.Name(), err)
		}
		if err := c.settle(ctx, log, d.Name(), h); err != nil {
			return err
		}
	}

	log.Debug("deleting service")
	if err := h.Delete(); err != nil {
		return platformError(OpDelete, d.Name(), err)
	}

	log.Info("service deleted")
	return nil
}

// Status returns the state the service manager reports for d
func (c *Controller) Status(ctx context.Context, d Descriptor) (state State, err error) {
	defer func(start time.Time) { c.metrics.observe(OpQuery, start, err) }(time.Now())

	if err := ctx.Err(); err != nil {
		return StateUnknown, err
	}

	m, err := c.platform.Connect(ManagerConnect)
	if err != nil {
		return StateUnknown, platformError(OpConnect, d.Name(), err)
	}
	defer closeQuietly(c.logger, m)

	h, err := m.OpenService(d.Name(), AccessQueryStatus)
	if err != nil {
		return StateUnknown, platformError(OpOpen, d.Name(), err)
	}
	defer closeQuietly(c.logger, h)

	state, err = h.Query()
	if err != nil {
		return StateUnknown, platformError(OpQuery, d.Name(), err)
	}
	return state, nil
}

// settle waits after a stop request. With no StopTimeout it pauses for
// StopGrace without checking the outcome; otherwise it polls until the
// service reports stopped or the timeout elapses. A timeout is not an error:
// the delete request that follows is still valid for a running service.
func (c *Controller) settle(ctx context.Context, log logrus.FieldLogger, name string, h ServiceHandle) error {
	if c.config.StopTimeout <= 0 {
		return sleepContext(ctx, c.config.StopGrace)
	}

	deadline := time.Now().Add(c.config.StopTimeout)
	ticker := time.NewTicker(c.config.StopPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			state, err := h.Query()
			if err != nil {
				return platformError(OpQuery, name, err)
			}
			if state == StateStopped {
				return nil
			}
			if time.Now().After(deadline) {
				log.WithFields(logrus.Fields{
					"state":   state,
					"timeout": c.config.StopTimeout,
				}).Warn("service did not stop before timeout, deleting anyway")
				return nil
			}
		}
	}
}

// resolveHelper canonicalizes the configured helper path
func (c *Controller) resolveHelper(name string) (string, error) {
	helper, err := canonicalize(c.config.HelperPath)
	if err != nil {
		return "", ioError(OpResolveHelper, name, c.config.HelperPath, err)
	}
	return helper, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func closeQuietly(log logrus.FieldLogger, c io.Closer) {
	if err := c.Close(); err != nil {
		log.WithError(err).Debug("closing handle")
	}
}
