package shared

import (
	"net/rpc"

	"github.com/hashicorp/go-plugin"
	"github.com/scan-io-git/iacsec/pkg/shared/config"
)

// Analyzer is implemented by static analyzer plugins such as GLITCH.
type Analyzer interface {
	Setup(configData config.Config) (bool, error)
	Analyze(args AnalyzerRequest) (AnalyzerResponse, error)
}

// AnalyzerRequest asks a plugin to analyze one target for one technology.
type AnalyzerRequest struct {
	TargetPath     string   // Path to the scan root
	Technology     string   // ansible, chef or puppet
	ResultsPath    string   // Folder the plugin may use for intermediate output
	AdditionalArgs []string // Additional arguments passed to the analyzer
}

// RawRecord is one finding exactly as the analyzer reported it.
// Line is a pointer so a missing value can be told apart from a file-level zero.
type RawRecord struct {
	Code       string `json:"code"`
	Path       string `json:"path"`
	Line       *int   `json:"line"`
	Detail     string `json:"detail,omitempty"`
	Technology string `json:"technology,omitempty"`
}

type AnalyzerResponse struct {
	Records []RawRecord
}

type AnalyzerRPCClient struct{ client *rpc.Client }

func (g *AnalyzerRPCClient) Setup(configData config.Config) (bool, error) {
	var resp bool
	err := g.client.Call("Plugin.Setup", configData, &resp)
	if err != nil {
		return false, err
	}
	return resp, nil
}

func (g *AnalyzerRPCClient) Analyze(req AnalyzerRequest) (AnalyzerResponse, error) {
	var resp AnalyzerResponse

	err := g.client.Call("Plugin.Analyze", req, &resp)
	if err != nil {
		return resp, err
	}

	return resp, nil
}

type AnalyzerRPCServer struct {
	Impl Analyzer
}

func (s *AnalyzerRPCServer) Setup(configData config.Config, resp *bool) error {
	var err error
	*resp, err = s.Impl.Setup(configData)
	return err
}

func (s *AnalyzerRPCServer) Analyze(args AnalyzerRequest, resp *AnalyzerResponse) error {
	var err error
	*resp, err = s.Impl.Analyze(args)
	return err
}

type AnalyzerPlugin struct {
	Impl Analyzer
}

func (p *AnalyzerPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &AnalyzerRPCServer{Impl: p.Impl}, nil
}

func (AnalyzerPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &AnalyzerRPCClient{client: c}, nil
}
