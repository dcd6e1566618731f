// Package api serves the bridge status over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path"
	"reflect"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/1broseidon/xwbridge/internal/compositor"
	"github.com/1broseidon/xwbridge/internal/ipc"
	"github.com/1broseidon/xwbridge/internal/output"
)

type StatusOutput struct {
	Body ipc.StatusData
}

type SurfacesOutput struct {
	Body ipc.SurfacesData
}

type OutputsOutput struct {
	Body ipc.OutputsData
}

// OutputDescriptor is the request body of PUT /outputs/{id}.
type OutputDescriptor struct {
	Name         *string         `json:"name,omitempty" doc:"Connector name, e.g. DP-1"`
	PhysicalSize output.Size     `json:"physical_size,omitempty"`
	Subpixel     string          `json:"subpixel,omitempty" enum:"unknown,none,horizontal_rgb,horizontal_bgr,vertical_rgb,vertical_bgr"`
	Make         string          `json:"make,omitempty"`
	Model        string          `json:"model,omitempty"`
	Mode         output.ModeInfo `json:"mode"`
	Transform    string          `json:"transform,omitempty" enum:"normal,90,180,270,flipped,flipped-90,flipped-180,flipped-270"`
	ScaleFactor  int32           `json:"scale_factor,omitempty" minimum:"1" doc:"Defaults to 1"`
	Location     output.Point    `json:"location,omitempty"`
}

func (d OutputDescriptor) info(id uint32) (output.Info, error) {
	info := output.Info{
		ID:           id,
		Name:         d.Name,
		PhysicalSize: d.PhysicalSize,
		Make:         d.Make,
		Model:        d.Model,
		Mode:         d.Mode,
		ScaleFactor:  d.ScaleFactor,
		Location:     d.Location,
	}
	if info.ScaleFactor == 0 {
		info.ScaleFactor = 1
	}
	if d.Subpixel != "" {
		if err := info.Subpixel.UnmarshalText([]byte(d.Subpixel)); err != nil {
			return output.Info{}, err
		}
	}
	if d.Transform != "" {
		if err := info.Transform.UnmarshalText([]byte(d.Transform)); err != nil {
			return output.Info{}, err
		}
	}
	return info, info.Validate()
}

type ApplyOutputInput struct {
	ID   uint32 `path:"id" doc:"Output id"`
	Body OutputDescriptor
}

// New registers the status operations on a chi router.
func New(backend ipc.Backend, version string) http.Handler {
	router := chi.NewMux()
	config := huma.DefaultConfig("xwbridge", version)
	config.Components.Schemas = huma.NewMapRegistry("#/components/schemas/", schemaNamer)
	api := humachi.New(router, config)
	Register(api, backend)
	return router
}

// Register adds the operations to api.
func Register(api huma.API, backend ipc.Backend) {
	huma.Register(api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Bridge status",
	}, func(ctx context.Context, _ *struct{}) (*StatusOutput, error) {
		status, err := backend.Status(ctx)
		if err != nil {
			return nil, unavailable(err)
		}
		status.DaemonRunning = true
		return &StatusOutput{Body: status}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-surfaces",
		Method:      http.MethodGet,
		Path:        "/surfaces",
		Summary:     "Surface registry",
	}, func(ctx context.Context, _ *struct{}) (*SurfacesOutput, error) {
		surfaces, err := backend.Surfaces(ctx)
		if err != nil {
			return nil, unavailable(err)
		}
		if surfaces == nil {
			surfaces = []compositor.SurfaceSnapshot{}
		}
		return &SurfacesOutput{Body: ipc.SurfacesData{Surfaces: surfaces}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-outputs",
		Method:      http.MethodGet,
		Path:        "/outputs",
		Summary:     "Advertised outputs",
	}, func(ctx context.Context, _ *struct{}) (*OutputsOutput, error) {
		outputs, err := backend.Outputs(ctx)
		if err != nil {
			return nil, unavailable(err)
		}
		if outputs == nil {
			outputs = []compositor.OutputSnapshot{}
		}
		return &OutputsOutput{Body: ipc.OutputsData{Outputs: outputs}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "apply-output",
		Method:        http.MethodPut,
		Path:          "/outputs/{id}",
		Summary:       "Create or update an output",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, in *ApplyOutputInput) (*struct{}, error) {
		info, err := in.Body.info(in.ID)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		if err := backend.ApplyOutput(ctx, info); err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return nil, nil
	})
}

// schemaNamer prefixes schema names with their package so that types such
// as image.Point and output.Point do not collide.
func schemaNamer(t reflect.Type, hint string) string {
	name := huma.DefaultSchemaNamer(t, hint)
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	pkg := path.Base(t.PkgPath())
	if t.Name() == "" || pkg == "." || pkg == "api" {
		return name
	}
	return strings.ToUpper(pkg[:1]) + pkg[1:] + name
}

func unavailable(err error) error {
	return huma.Error503ServiceUnavailable(fmt.Sprintf("bridge unavailable: %v", err))
}

// Server serves the API until its context ends. It implements
// suture.Service.
type Server struct {
	Addr    string
	Handler http.Handler
	Logger  *slog.Logger
}

func (s *Server) String() string {
	return "http"
}

func (s *Server) Serve(ctx context.Context) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errC := make(chan error, 1)
	go func() { errC <- srv.Serve(ln) }()
	logger.Info("status API listening", "addr", ln.Addr().String())

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errC; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
