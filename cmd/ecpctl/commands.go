// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/time/rate"

	"github.com/soothill/roku-ecp/app"
	"github.com/soothill/roku-ecp/client"
	"github.com/soothill/roku-ecp/config"
	"github.com/soothill/roku-ecp/device"
	"github.com/soothill/roku-ecp/discovery"
	"github.com/soothill/roku-ecp/pkg/errors"
	"github.com/soothill/roku-ecp/pkg/logger"
	"github.com/soothill/roku-ecp/pkg/util"
	"github.com/soothill/roku-ecp/remote"
	"github.com/soothill/roku-ecp/wol"
)

type cli struct {
	cfg        *config.Config
	configPath string
	out        io.Writer

	// mac wakes devices that do not answer device-info
	mac   wol.MAC
	waker *wol.Sender
}

type command struct {
	args    string
	help    string
	minArgs int
	run     func(ctx context.Context, c *cli, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"discover":        {"", "Find devices with SSDP and print them", 0, runDiscover},
		"info":            {"<ip>", "Print device-info", 1, runInfo},
		"apps":            {"<ip>", "List installed apps", 1, runApps},
		"state":           {"<ip>", "Print the power state", 1, runState},
		"power":           {"<ip> <on|off|toggle>", "Change the power state", 2, runPower},
		"launch":          {"<ip> <app-id>", "Launch an app, waking the device if needed", 2, runLaunch},
		"press":           {"<ip> <button>...", "Press remote buttons in order", 2, runPress},
		"type":            {"<ip> <text>", "Type text one character at a time", 2, runType},
		"icon":            {"<ip> <app-id> <file>", "Save an app icon to file", 3, runIcon},
		"active":          {"<ip>", "Print the app in the foreground", 1, runActive},
		"watch":           {"", "Poll power state of discovered devices and serve metrics", 0, runWatch},
		"validate-config": {"", "Validate the file given with -config", 0, runValidateConfig},
	}
}

// parseTarget accepts "ipv4" or "ipv4:port"
func parseTarget(s string) (string, int, error) {
	host, port := s, device.DefaultPort
	if h, p, err := net.SplitHostPort(s); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return "", 0, fmt.Errorf("invalid port in %q", s)
		}
		host, port = h, n
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return "", 0, fmt.Errorf("%q is not an IPv4 address", host)
	}
	return ip.To4().String(), port, nil
}

func (c *cli) deviceOptions() []device.Option {
	var opts []device.Option
	if c.waker != nil {
		opts = append(opts,
			device.WithWaker(c.waker),
			device.WithTransport(client.New(client.WithWaker(c.waker))))
	}
	if c.cfg.Remote.KeypressInterval > 0 {
		opts = append(opts, device.WithKeypressLimiter(rate.NewLimiter(rate.Every(c.cfg.Remote.KeypressInterval), 1)))
	}
	return opts
}

// build creates the device without contacting it. The -mac address is its
// wake MAC until device-info says otherwise.
func (c *cli) build(target string) (*device.Device, error) {
	ip, port, err := parseTarget(target)
	if err != nil {
		return nil, err
	}
	d := device.FromIPv4(ip, port, c.deviceOptions()...)
	d.MACWLAN = c.mac
	return d, nil
}

// open builds the device and fills in its name and MAC addresses
func (c *cli) open(ctx context.Context, target string) (*device.Device, error) {
	d, err := c.build(target)
	if err != nil {
		return nil, err
	}
	if err := d.UpdateSelf(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", target, err)
	}
	return d, nil
}

// openAsleep is open for commands that can wake the device. A device that
// times out is returned unenriched with asleep set.
func (c *cli) openAsleep(ctx context.Context, target string) (d *device.Device, asleep bool, err error) {
	d, err = c.build(target)
	if err != nil {
		return nil, false, err
	}
	if err := d.UpdateSelf(ctx); err != nil {
		if !errors.IsTimeout(err) {
			return nil, false, fmt.Errorf("%s: %w", target, err)
		}
		logger.Info().Str("device", target).Msg("Device is not answering, assuming it is off")
		return d, true, nil
	}
	return d, false, nil
}

func errNoWakeMAC(target string) error {
	return fmt.Errorf("%s: device is not answering and its MAC is unknown, pass -mac", target)
}

func parseAppID(s string) (int32, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid app id %q", s)
	}
	return int32(id), nil
}

func runDiscover(ctx context.Context, c *cli, _ []string) error {
	opts := []discovery.Option{discovery.WithDeviceOptions(c.deviceOptions()...)}
	if c.cfg.Discovery.MDNSService != "" {
		opts = append(opts, discovery.WithMDNS(c.cfg.Discovery.MDNSService, c.cfg.Discovery.MDNSDomain))
	}

	devices, err := discovery.NewScanner(opts...).Discover(ctx, c.cfg.Discovery.Timeout)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IP\tPORT\tNAME\tNETWORK\tWIFI MAC\tETHERNET MAC")
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", d.IPv4, d.Port, d.Name, d.Network, d.MACWLAN, d.MACEth)
	}
	return tw.Flush()
}

func runInfo(ctx context.Context, c *cli, args []string) error {
	d, err := c.open(ctx, args[0])
	if err != nil {
		return err
	}
	info, err := d.GetInfo(ctx)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, info[k])
	}
	return tw.Flush()
}

func runApps(ctx context.Context, c *cli, args []string) error {
	d, err := c.open(ctx, args[0])
	if err != nil {
		return err
	}
	apps, err := d.GetInstalledApps(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tVERSION\tNAME")
	for _, a := range apps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", a.ID, a.Type, a.Version, a.Name)
	}
	return tw.Flush()
}

// runState never enriches: a device that does not answer is Off.
func runState(ctx context.Context, c *cli, args []string) error {
	d, err := c.build(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, d.GetPowerState(ctx))
	return nil
}

func runPower(ctx context.Context, c *cli, args []string) error {
	var cmd device.PowerCommand
	switch strings.ToLower(args[1]) {
	case "on", "off", "toggle":
		cmd = device.ParsePowerCommand(args[1])
	default:
		return fmt.Errorf("unknown power command %q (want on, off or toggle)", args[1])
	}

	d, asleep, err := c.openAsleep(ctx, args[0])
	if err != nil {
		return err
	}
	if asleep && cmd != device.TurnOff && d.WakeMAC().IsZero() {
		return errNoWakeMAC(args[0])
	}
	if _, err := d.SendPowerCommand(ctx, cmd); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s: power %s\n", d, cmd)
	return nil
}

func runLaunch(ctx context.Context, c *cli, args []string) error {
	id, err := parseAppID(args[1])
	if err != nil {
		return err
	}
	d, asleep, err := c.openAsleep(ctx, args[0])
	if err != nil {
		return err
	}
	if asleep && d.WakeMAC().IsZero() {
		return errNoWakeMAC(args[0])
	}
	if _, err := d.LaunchAppByID(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s: launched %d\n", d, id)
	return nil
}

func runPress(ctx context.Context, c *cli, args []string) error {
	buttons := make([]remote.Button, 0, len(args)-1)
	for _, name := range args[1:] {
		b, ok := remote.LookupButton(name)
		if !ok {
			return fmt.Errorf("unknown button %q", name)
		}
		buttons = append(buttons, b)
	}

	d, err := c.open(ctx, args[0])
	if err != nil {
		return err
	}
	return d.PressButtons(ctx, buttons...)
}

func runType(ctx context.Context, c *cli, args []string) error {
	d, err := c.open(ctx, args[0])
	if err != nil {
		return err
	}
	return d.PressKeys(ctx, strings.Join(args[1:], " "))
}

func runIcon(ctx context.Context, c *cli, args []string) error {
	id, err := parseAppID(args[1])
	if err != nil {
		return err
	}
	d, err := c.open(ctx, args[0])
	if err != nil {
		return err
	}

	a := &device.App{ID: id}
	if err := d.FetchAppIcon(ctx, a); err != nil {
		return err
	}
	if err := util.WriteFileAtomic(args[2], a.Icon, 0o644); err != nil {
		return fmt.Errorf("failed to write icon: %w", err)
	}
	fmt.Fprintf(c.out, "wrote %d bytes to %s\n", len(a.Icon), args[2])
	return nil
}

func runActive(ctx context.Context, c *cli, args []string) error {
	d, err := c.open(ctx, args[0])
	if err != nil {
		return err
	}
	a, err := d.GetActiveApp(ctx)
	if err != nil {
		return err
	}
	if a == nil {
		fmt.Fprintln(c.out, "none")
		return nil
	}
	fmt.Fprintf(c.out, "%d\t%s\n", a.ID, a.Name)
	return nil
}

func runWatch(ctx context.Context, c *cli, _ []string) error {
	logger.Info().
		Dur("discovery_interval", c.cfg.Discovery.Interval).
		Dur("poll_interval", c.cfg.Monitor.PollInterval).
		Str("metrics_address", c.cfg.Metrics.Address).
		Msg("Starting watch")

	application, err := app.New(c.cfg, c.configPath)
	if err != nil {
		return err
	}
	setupDebugSignalHandlers(application)
	return application.Run(ctx)
}

func runValidateConfig(_ context.Context, c *cli, _ []string) error {
	if c.configPath == "" {
		return fmt.Errorf("no configuration file given, use -config")
	}
	logger.Info().Str("path", c.configPath).Msg("Validating configuration file")

	if err := config.ValidateWithSchema(c.configPath); err != nil {
		return err
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, "Configuration validation PASSED")
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "  Discovery Timeout:\t%s\n", cfg.Discovery.Timeout)
	fmt.Fprintf(tw, "  Discovery Interval:\t%s\n", cfg.Discovery.Interval)
	if cfg.Discovery.MDNSService != "" {
		fmt.Fprintf(tw, "  mDNS:\t%s in %s\n", cfg.Discovery.MDNSService, cfg.Discovery.MDNSDomain)
	}
	fmt.Fprintf(tw, "  Poll Interval:\t%s\n", cfg.Monitor.PollInterval)
	fmt.Fprintf(tw, "  Keypress Interval:\t%s\n", cfg.Remote.KeypressInterval)
	fmt.Fprintf(tw, "  Metrics Address:\t%s\n", cfg.Metrics.Address)
	fmt.Fprintf(tw, "  Log Level:\t%s\n", cfg.Logging.Level)
	if cfg.Notifications.SlackWebhookURL != "" {
		fmt.Fprintln(tw, "  Slack Notifications:\tEnabled")
	} else {
		fmt.Fprintln(tw, "  Slack Notifications:\tDisabled")
	}
	return tw.Flush()
}
