package mcp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/api/mcp"
	"github.com/papercomputeco/stacks/pkg/federation"
	"github.com/papercomputeco/stacks/pkg/logger"
	"github.com/papercomputeco/stacks/pkg/vector/inmemory"
)

func newEngine() *federation.Engine {
	engine, err := federation.NewEngine(&federation.Config{
		Driver: inmemory.NewDriver(logger.Nop()),
		Mode:   federation.ModeText,
		Logger: logger.Nop(),
	})
	Expect(err).NotTo(HaveOccurred())
	return engine
}

var _ = Describe("NewServer", func() {
	It("creates a server with the query tool", func() {
		server, err := mcp.NewServer(mcp.Config{
			Engine: newEngine(),
			Logger: logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(server).NotTo(BeNil())
		Expect(server.Handler()).NotTo(BeNil())
	})

	It("requires an engine", func() {
		_, err := mcp.NewServer(mcp.Config{
			Logger: logger.Nop(),
		})
		Expect(err).To(HaveOccurred())
	})

	It("requires a logger", func() {
		_, err := mcp.NewServer(mcp.Config{
			Engine: newEngine(),
		})
		Expect(err).To(HaveOccurred())
	})

	It("creates an empty server in noop mode without dependencies", func() {
		server, err := mcp.NewServer(mcp.Config{Noop: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(server).NotTo(BeNil())
	})
})
