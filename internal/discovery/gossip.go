package discovery

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/memberlist"
	"github.com/rs/zerolog"
)

const leaveTimeout = 5 * time.Second

// gossipClient joins a memberlist cluster. Each node advertises its own
// instance in the node metadata; the snapshot is rebuilt on membership
// events and on Refresh.
type gossipClient struct {
	cfg  *Config
	log  zerolog.Logger
	ml   *memberlist.Memberlist
	snap snapshot

	mu    sync.Mutex
	nodes map[string]Instance
}

func newGossipClient(cfg *Config, log zerolog.Logger) (*gossipClient, error) {
	c := &gossipClient{cfg: cfg, log: log, nodes: make(map[string]Instance)}

	var meta []byte
	if cfg.InstanceURL != "" {
		self := Instance{ServiceID: cfg.ServiceID, URL: cfg.InstanceURL}
		encoded, err := self.encode()
		if err != nil {
			return nil, err
		}
		if len(encoded) > memberlist.MetaMaxSize {
			return nil, fmt.Errorf("discovery: node metadata exceeds %d bytes", memberlist.MetaMaxSize)
		}
		meta = encoded
	}

	mlc := memberlist.DefaultLANConfig()
	mlc.Name = cfg.Gossip.NodeName
	if mlc.Name == "" {
		host, _ := os.Hostname()
		mlc.Name = host + "-" + uuid.NewString()[:8]
	}
	host, port, err := splitHostPort(cfg.Gossip.BindAddr)
	if err != nil {
		return nil, err
	}
	mlc.BindAddr = host
	mlc.BindPort = port
	mlc.AdvertisePort = port
	mlc.Delegate = metaDelegate(meta)
	mlc.Events = c
	mlc.LogOutput = io.Discard

	ml, err := memberlist.Create(mlc)
	if err != nil {
		return nil, fmt.Errorf("discovery: start gossip: %w", err)
	}
	c.ml = ml
	c.rebuild()

	log.Info().Str("node", mlc.Name).Str("bind", cfg.Gossip.BindAddr).Msg("gossip node started")
	return c, nil
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("discovery: gossip.bind_addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("discovery: gossip.bind_addr port: %w", err)
	}
	return host, port, nil
}

func (c *gossipClient) Mode() Mode { return ModeGossip }

func (c *gossipClient) Instances(serviceID string) ([]Instance, error) {
	return c.snap.instances(serviceID)
}

func (c *gossipClient) Services() []string { return c.snap.services() }

func (c *gossipClient) All() []Instance { return c.snap.all() }

// Register joins the configured seed nodes.
func (c *gossipClient) Register(ctx context.Context) error {
	if len(c.cfg.Gossip.Join) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := c.ml.Join(c.cfg.Gossip.Join)
	if err != nil {
		return fmt.Errorf("discovery: join %v: %w", c.cfg.Gossip.Join, err)
	}
	c.log.Info().Int("contacted", n).Msg("joined gossip cluster")
	c.rebuild()
	return nil
}

// Refresh rebuilds the node table from the current member list.
func (c *gossipClient) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.rebuild()
	return nil
}

func (c *gossipClient) rebuild() {
	members := c.ml.Members()

	c.mu.Lock()
	c.nodes = make(map[string]Instance, len(members))
	for _, m := range members {
		if inst, ok := decodeInstance(m.Meta); ok {
			inst.Node = m.Name
			c.nodes[m.Name] = inst
		}
	}
	c.publishLocked()
	c.mu.Unlock()
}

func (c *gossipClient) publishLocked() {
	all := make([]Instance, 0, len(c.nodes))
	for _, inst := range c.nodes {
		all = append(all, inst)
	}
	c.snap.store(all)
}

func (c *gossipClient) NotifyJoin(n *memberlist.Node) { c.upsert(n) }
func (c *gossipClient) NotifyUpdate(n *memberlist.Node) { c.upsert(n) }

func (c *gossipClient) NotifyLeave(n *memberlist.Node) {
	c.mu.Lock()
	delete(c.nodes, n.Name)
	c.publishLocked()
	c.mu.Unlock()
	c.log.Info().Str("node", n.Name).Msg("gossip node left")
}

func (c *gossipClient) upsert(n *memberlist.Node) {
	inst, ok := decodeInstance(n.Meta)
	if !ok {
		return
	}
	inst.Node = n.Name

	c.mu.Lock()
	c.nodes[n.Name] = inst
	c.publishLocked()
	c.mu.Unlock()
	c.log.Debug().Str("node", n.Name).Str("service", inst.ServiceID).Msg("gossip instance seen")
}

func (c *gossipClient) Shutdown() error {
	if err := c.ml.Leave(leaveTimeout); err != nil {
		c.log.Warn().Err(err).Msg("gossip leave failed")
	}
	return c.ml.Shutdown()
}

// metaDelegate advertises the local instance; no user messages are exchanged.
type metaDelegate []byte

func (d metaDelegate) NodeMeta(limit int) []byte {
	if len(d) > limit {
		return nil
	}
	return d
}

func (metaDelegate) NotifyMsg([]byte) {}
func (metaDelegate) GetBroadcasts(int, int) [][]byte { return nil }
func (metaDelegate) LocalState(bool) []byte { return nil }
func (metaDelegate) MergeRemoteState([]byte, bool) {}
