package testtool

import (
	"context"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
)

// SetupContainer start a test container and return its host/port
func SetupContainer(ctx context.Context, req testcontainers.ContainerRequest) (testcontainers.Container, string, string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, "", "", err
	}

	// ExposedPorts[0] looks like "5432/tcp"
	natPort, err := nat.NewPort("tcp", req.ExposedPorts[0][:len(req.ExposedPorts[0])-4])
	if err != nil {
		return nil, "", "", err
	}

	port, err := container.MappedPort(ctx, natPort)
	if err != nil {
		return nil, "", "", err
	}

	return container, host, port.Port(), nil
}
