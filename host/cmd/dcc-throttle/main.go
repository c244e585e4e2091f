// Command dcc-throttle drives a DCC controller over its USB serial link from
// an interactive shell, and optionally mirrors it onto MQTT.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"dccstation/host/bridge"
	"dccstation/host/throttle"
)

const clientKey = "$client"

var (
	device   = flag.String("device", "/dev/ttyACM0", "Serial device path")
	mqttURL  = flag.String("mqtt", "", "Broker URL, e.g. mqtt://localhost:1883; empty disables the bridge")
	node     = flag.String("node", "", "MQTT node name; defaults to an ID derived from the machine ID")
	interval = flag.Duration("refresh", time.Second, "MQTT state refresh interval")
	evalOnly = flag.Bool("e", false, "Run the command given as arguments and exit")
)

func clientFrom(c *ishell.Context) *throttle.Client {
	return c.Get(clientKey).(*throttle.Client)
}

// withState runs a throttle call and prints the resulting state
func withState(fn func(ctx context.Context, cl *throttle.Client, args []string) (throttle.State, error)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), throttle.DefaultTimeout)
		defer cancel()
		s, err := fn(ctx, clientFrom(c), c.Args)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(formatState(s))
	}
}

func formatState(s throttle.State) string {
	dir := "reverse"
	if s.Speed > 0 {
		dir = "forward"
	}
	return fmt.Sprintf("address=%d speed=%d (%s) drained=%d idles=%d", s.Address, s.Speed, dir, s.Drained, s.Idles)
}

func intArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one integer argument")
	}
	return strconv.Atoi(args[0])
}

var commands = []*ishell.Cmd{
	{
		Name: "state",
		Help: "show address, speed and counters",
		Func: withState(func(ctx context.Context, cl *throttle.Client, _ []string) (throttle.State, error) {
			return cl.State(ctx)
		}),
	},
	{
		Name:    "addr",
		Aliases: []string{"address"},
		Help:    "N  set the locomotive address (0..127)",
		Func: withState(func(ctx context.Context, cl *throttle.Client, args []string) (throttle.State, error) {
			v, err := intArg(args)
			if err != nil {
				return throttle.State{}, err
			}
			return cl.SetAddress(ctx, v)
		}),
	},
	{
		Name: "speed",
		Help: "N  set the signed speed step (-28..28)",
		Func: withState(func(ctx context.Context, cl *throttle.Client, args []string) (throttle.State, error) {
			v, err := intArg(args)
			if err != nil {
				return throttle.State{}, err
			}
			return cl.SetSpeed(ctx, v)
		}),
	},
	{
		Name: "stop",
		Help: "set speed 0",
		Func: withState(func(ctx context.Context, cl *throttle.Client, _ []string) (throttle.State, error) {
			return cl.Stop(ctx)
		}),
	},
	{
		Name: "dict",
		Help: "print the controller's message table",
		Func: func(c *ishell.Context) {
			d := clientFrom(c).Dictionary()
			c.Printf("version %s\n", d.Version)
			names := make([]string, 0, len(d.Commands)+len(d.Responses))
			for sig, id := range d.Commands {
				names = append(names, fmt.Sprintf("%3d  %s", id, sig))
			}
			for sig, id := range d.Responses {
				names = append(names, fmt.Sprintf("%3d  %s (response)", id, sig))
			}
			sort.Strings(names)
			for _, n := range names {
				c.Println(n)
			}
			if glog.V(1) {
				data, _ := json.MarshalIndent(d.Config, "", "  ")
				c.Println(string(data))
			}
		},
	},
}

func startBridge(ctx context.Context, cl *throttle.Client) (*bridge.Queue, error) {
	opts, err := bridge.ClientOptionsFromURL(*mqttURL)
	if err != nil {
		return nil, err
	}
	name := *node
	if name == "" {
		if name, err = bridge.NodeID(); err != nil {
			return nil, fmt.Errorf("node id: %w", err)
		}
	}

	var b *bridge.Bridge
	var q *bridge.Queue
	handle := func(topic string, payload []byte) {
		if err := b.HandleMessage(topic, payload); err != nil {
			glog.Warningf("%s: %v", topic, err)
		}
	}
	// The queue needs the topics before the bridge exists
	topics := bridge.New(nil, nil, name).Subscriptions()
	q = bridge.NewQueue(opts, topics, handle)
	b = bridge.New(cl, q, name)

	if err := q.Connect(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", *mqttURL, err)
	}
	glog.Infof("bridge publishing on %s", b.Topic(bridge.TopicState))
	go b.Run(ctx, *interval)
	return q, nil
}

func main() {
	flag.Parse()
	defer glog.Flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	cl, err := throttle.Dial(connectCtx, *device)
	connectCancel()
	if err != nil {
		glog.Exitf("connect %s: %v", *device, err)
	}
	defer cl.Close()
	glog.Infof("connected to %s (%s)", *device, cl.Dictionary().Version)

	if *mqttURL != "" {
		q, err := startBridge(ctx, cl)
		if err != nil {
			glog.Exitf("bridge: %v", err)
		}
		defer q.Close()
	}

	shell := ishell.New()
	shell.Set(clientKey, cl)
	shell.SetPrompt("dcc > ")
	for _, cmd := range commands {
		shell.AddCmd(cmd)
	}

	if *evalOnly {
		if err := shell.Process(flag.Args()...); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	shell.Run()
}
