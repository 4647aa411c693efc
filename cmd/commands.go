package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/wetland-guardian/cienaga-classifier/internal/delivery"
	"github.com/wetland-guardian/cienaga-classifier/internal/forest"
	"github.com/wetland-guardian/cienaga-classifier/internal/properties"
	"github.com/wetland-guardian/cienaga-classifier/internal/rpc"
	"github.com/wetland-guardian/cienaga-classifier/internal/ui"
)

func newTrainCmd() *cobra.Command {
	var (
		req   delivery.TrainRequest
		trees int
		seed  uint64
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Build the training corpus from a folder of images and save the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Params = forest.DefaultParams()
			req.Params.Trees = trees
			req.Params.Seed = seed
			req.ShowProgress = true

			m, err := delivery.NewDefaultService().TrainModel(req)
			if err != nil {
				return err
			}
			ui.PrintMetrics(m)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.TrainPath, "train-path", "", "folder with the training images")
	cmd.Flags().StringVar(&req.TestPath, "test-path", "", "folder with the evaluation images (defaults to --train-path)")
	cmd.Flags().BoolVar(&req.Evaluate, "evaluate", false, "report recall on a stratified 30% held-out split")
	cmd.Flags().StringVar(&req.AuditPath, "audit", "", "write the per-image extraction results to this CSV")
	cmd.Flags().StringVar(&req.ReportPath, "report", "", "write the held-out classification report to this CSV")
	cmd.Flags().IntVar(&trees, "trees", forest.DefaultParams().Trees, "number of trees")
	cmd.Flags().Uint64Var(&seed, "seed", forest.DefaultParams().Seed, "random seed of the forest")
	cmd.MarkFlagRequired("train-path")
	return cmd
}

func newPredictCmd() *cobra.Command {
	var (
		req    delivery.PredictRequest
		dir    string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Classify an image, or every image of a folder, into ciénaga and other",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := delivery.NewDefaultService()
			if dir != "" {
				summaries, err := svc.ClassifyDirectory(dir, outDir, true)
				if err != nil {
					return err
				}
				return printJSON(summaries)
			}
			if req.ImagePath == "" {
				return errors.New("either --image or --dir is required")
			}

			summary, err := svc.ClassifyImage(req)
			if err != nil {
				return err
			}
			color.Green("Classification written to %s", summary.Output)
			color.Green("Class counts: 0 (other) = %d, 1 (ciénaga) = %d", summary.OtherPixels, summary.WetlandPixels)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.ImagePath, "image", "", "image to classify")
	cmd.Flags().StringVar(&req.OutputPath, "output", "", "classification GeoTIFF (defaults to <name>"+properties.ClassificationSuffix+")")
	cmd.Flags().StringVar(&req.PreviewPath, "preview", "", "write a PNG preview of the classification")
	cmd.Flags().StringVar(&req.TrueColorPath, "truecolor", "", "write a stretched RGB PNG of the image")
	cmd.Flags().StringVar(&req.SummaryPath, "summary", "", "write a GeoJSON summary of the classification")
	cmd.Flags().StringVar(&dir, "dir", "", "classify every image in this folder")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "output folder for --dir (defaults to the input folder)")
	cmd.MarkFlagsMutuallyExclusive("image", "dir")
	return cmd
}

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve training and classification over gRPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == 0 {
				port = properties.Port()
				color.Yellow("No port specified. Using port: %d", port)
			} else {
				color.Green("Using specified port: %d", port)
			}
			properties.GrpcPort = port

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return rpc.Serve(ctx, port, delivery.NewDefaultService())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (defaults to GRPC_PORT or 50051)")
	return cmd
}

func newRemoteCmd() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Call a running classifier service",
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", fmt.Sprintf("localhost:%d", properties.DefaultGrpcPort), "service address")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Minute, "call timeout")

	call := func(fn func(context.Context, *rpc.Client) (map[string]any, error)) error {
		client, err := rpc.NewClient(addr)
		if err != nil {
			return err
		}
		defer client.Close()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := fn(ctx, client)
		if err != nil {
			return err
		}
		return printJSON(resp)
	}

	var (
		trainPath, testPath string
		evaluate            bool
	)
	train := &cobra.Command{
		Use:   "train",
		Short: "Train the model on the service host",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(func(ctx context.Context, c *rpc.Client) (map[string]any, error) {
				return c.Train(ctx, trainPath, testPath, evaluate)
			})
		},
	}
	train.Flags().StringVar(&trainPath, "train-path", "", "folder with the training images on the service host")
	train.Flags().StringVar(&testPath, "test-path", "", "folder with the evaluation images on the service host")
	train.Flags().BoolVar(&evaluate, "evaluate", false, "report recall on a 30% held-out split")
	train.MarkFlagRequired("train-path")

	var imagePath, outputPath string
	predict := &cobra.Command{
		Use:   "predict",
		Short: "Classify an image on the service host",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(func(ctx context.Context, c *rpc.Client) (map[string]any, error) {
				return c.Predict(ctx, imagePath, outputPath)
			})
		},
	}
	predict.Flags().StringVar(&imagePath, "image", "", "image path on the service host")
	predict.Flags().StringVar(&outputPath, "output", "", "classification path on the service host")
	predict.MarkFlagRequired("image")

	reload := &cobra.Command{
		Use:   "reload",
		Short: "Make the service load the model currently on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(func(ctx context.Context, c *rpc.Client) (map[string]any, error) {
				return c.Reload(ctx)
			})
		},
	}

	cmd.AddCommand(train, predict, reload)
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
