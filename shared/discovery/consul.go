package discovery

import (
	"fmt"

	"github.com/hashicorp/consul/api"
	"github.com/rs/zerolog"
)

// ConsulRegistrar registers a single service instance with a Consul agent.
type ConsulRegistrar struct {
	client    *api.Client
	serviceID string
	logger    *zerolog.Logger
}

// Registration describes the instance to announce.
type Registration struct {
	Name      string
	Host      string
	Port      int
	HealthURL string
}

// NewConsulRegistrar creates a registrar talking to the agent at addr.
func NewConsulRegistrar(addr string, logger *zerolog.Logger) (*ConsulRegistrar, error) {
	cfg := api.DefaultConfig()
	cfg.Address = addr

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return &ConsulRegistrar{client: client, logger: logger}, nil
}

// Register announces the instance with an HTTP health check.
func (r *ConsulRegistrar) Register(reg Registration) error {
	r.serviceID = fmt.Sprintf("%s-%s-%d", reg.Name, reg.Host, reg.Port)

	err := r.client.Agent().ServiceRegister(&api.AgentServiceRegistration{
		ID:      r.serviceID,
		Name:    reg.Name,
		Address: reg.Host,
		Port:    reg.Port,
		Check: &api.AgentServiceCheck{
			HTTP:                           reg.HealthURL,
			Interval:                       "10s",
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to register service with consul: %w", err)
	}

	r.logger.Info().Str("service_id", r.serviceID).Msg("registered with consul")

	return nil
}

// Deregister removes the instance registered by Register. It is a no-op when
// nothing was registered.
func (r *ConsulRegistrar) Deregister() error {
	if r.serviceID == "" {
		return nil
	}

	return r.client.Agent().ServiceDeregister(r.serviceID)
}
