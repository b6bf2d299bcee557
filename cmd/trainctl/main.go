// Command trainctl drives a training workspace from the shell: scaffolding
// and verifying the directory tree, pretraining encoders, encoding datasets
// and evaluating linear probes, all without the HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"training-workspace-service/internal/classifier"
	"training-workspace-service/internal/dataset"
	"training-workspace-service/internal/domain"
	"training-workspace-service/internal/embedding"
	"training-workspace-service/internal/encoder"
	"training-workspace-service/internal/imaging"
	"training-workspace-service/internal/pretraining"
	"training-workspace-service/internal/workspace"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

const usage = `usage: trainctl <command> [flags]

commands:
  init      create the workspace directory tree
  verify    check the workspace tree against its manifest
  train     pretrain an encoder on a dataset split
  encode    project a dataset through a trained encoder
  classify  fit and score a linear probe on an encoded dataset

run "trainctl <command> -h" for command flags
`

func main() {
	log.SetLevel(log.WarnLevel)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(exitUsage)
	}

	var code int
	switch os.Args[1] {
	case "init":
		code = runInit(os.Args[2:])
	case "verify":
		code = runVerify(os.Args[2:])
	case "train":
		code = runTrain(os.Args[2:])
	case "encode":
		code = runEncode(os.Args[2:])
	case "classify":
		code = runClassify(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "trainctl: unknown command %q\n\n%s", os.Args[1], usage)
		code = exitUsage
	}
	os.Exit(code)
}

func loadWorkspace(root, manifestPath string) (workspace.Layout, workspace.Manifest, error) {
	layout := workspace.NewLayout(root)
	if manifestPath == "" {
		manifestPath = filepath.Join(layout.Root, workspace.ManifestFile)
	}
	manifest, err := workspace.LoadManifest(manifestPath)
	return layout, manifest, err
}

func runInit(args []string) int {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	root := fs.String("root", ".", "workspace root directory")
	manifestPath := fs.String("manifest", "", "workspace manifest path (default <root>/workspace.yaml)")
	fs.Parse(args)

	layout, manifest, err := loadWorkspace(*root, *manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trainctl: %v\n", err)
		return exitFail
	}

	result, err := workspace.Scaffold(layout, manifest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trainctl: %v\n", err)
		return exitFail
	}

	for _, dir := range result.Created {
		fmt.Printf("created  %s\n", dir)
	}
	for _, dir := range result.Existing {
		fmt.Printf("exists   %s\n", dir)
	}
	return exitOK
}

func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	root := fs.String("root", ".", "workspace root directory")
	manifestPath := fs.String("manifest", "", "workspace manifest path (default <root>/workspace.yaml)")
	fs.Parse(args)

	layout, manifest, err := loadWorkspace(*root, *manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trainctl: %v\n", err)
		return exitFail
	}

	report := workspace.Verify(layout, manifest)
	for _, c := range report.Checks {
		tag := "ok  "
		switch c.Severity {
		case workspace.SeverityWarn:
			tag = "warn"
		case workspace.SeverityFail:
			tag = "FAIL"
		}
		if c.Detail != "" {
			fmt.Printf("%s %s: %s (%s)\n", tag, c.Name, c.Path, c.Detail)
		} else {
			fmt.Printf("%s %s: %s\n", tag, c.Name, c.Path)
		}
	}

	if !report.OK() {
		fmt.Printf("workspace verification failed: %d check(s)\n", report.Failures())
		return exitFail
	}
	fmt.Println("workspace verified")
	return exitOK
}

func runTrain(args []string) int {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	root := fs.String("root", ".", "workspace root directory")
	algorithm := fs.String("algorithm", "simclr", "pretraining algorithm (simclr or xclr)")
	datasetName := fs.String("dataset", workspace.PrimaryDataset, "dataset name under datasets/")
	batch := fs.Int("batch", 256, "batch size")
	epochs := fs.Int("epochs", 100, "training epochs")
	outFeatures := fs.Int("out-features", 128, "embedding dimensionality")
	tau := fs.Float64("tau", 0.1, "softmax temperature")
	tauS := fs.Float64("tau-s", 0.1, "label-similarity temperature (xclr)")
	labelRange := fs.Int("label-range", 50, "number of classes (xclr)")
	encoderLoad := fs.String("encoder", "", "existing encoder checkpoint to warm-start from")
	seed := fs.Int64("seed", 0, "random seed (0 uses a time-based seed)")
	fs.Parse(args)

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	layout := workspace.NewLayout(*root)

	trainer, err := pretraining.New(pretraining.Config{
		Algorithm:       domain.Algorithm(*algorithm),
		BatchSize:       *batch,
		Epochs:          *epochs,
		OutFeatures:     *outFeatures,
		Tau:             *tau,
		TauS:            *tauS,
		LabelRange:      *labelRange,
		Seed:            *seed,
		EncoderLoadPath: *encoderLoad,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "trainctl: %v\n", err)
		return exitUsage
	}

	tree, err := dataset.Scan(layout.SplitDir(*datasetName, workspace.TrainSplit))
	if err != nil {
		fmt.Fprintf(os.Stderr, "trainctl: %v\n", err)
		return exitFail
	}
	fmt.Printf("training %s on %s: %d classes, %d images\n",
		*algorithm, *datasetName, tree.NumClasses(), len(tree.Samples))

	runDir, err := pretraining.MakeRunDir(layout.EncoderRunBase(*algorithm))
	if err != nil {
		fmt.Fprintf(os.Stderr, "trainctl: %v\n", err)
		return exitFail
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := trainer.Run(ctx, tree, runDir, func(p pretraining.Progress) {
		fmt.Printf("epoch %d/%d  loss %.4f\n", p.Epoch, p.Epochs, p.Loss)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "trainctl: %v\n", err)
		return exitFail
	}

	fmt.Printf("final loss %.4f\n", result.FinalLoss)
	fmt.Printf("checkpoints written to %s\n", result.RunDir)
	return exitOK
}

func runEncode(args []string) int {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	root := fs.String("root", ".", "workspace root directory")
	checkpoint := fs.String("checkpoint", "", "run directory or encoder checkpoint to load")
	model := fs.String("model", "", "model name used in the output path (defaults to the checkpoint's algorithm)")
	task := fs.String("task", workspace.PrimaryDataset, "dataset name under datasets/ to encode")
	name := fs.String("name", "", "output directory segment (default task)")
	testFraction := fs.Float64("test-fraction", 0, "carve a test split from train when the dataset has none")
	seed := fs.Int64("seed", 0, "split seed")
	fs.Parse(args)

	if *checkpoint == "" {
		fmt.Fprintln(os.Stderr, "trainctl: -checkpoint is required")
		return exitUsage
	}

	layout := workspace.NewLayout(*root)

	enc, err := encoder.Load(*checkpoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trainctl: %v\n", err)
		return exitFail
	}
	if enc.InFeatures != imaging.FeatureDim {
		fmt.Fprintf(os.Stderr, "trainctl: checkpoint expects %d input features, images provide %d\n",
			enc.InFeatures, imaging.FeatureDim)
		return exitFail
	}

	modelName := *model
	if modelName == "" {
		modelName = enc.Algorithm
	}
	if modelName == "" {
		fmt.Fprintln(os.Stderr, "trainctl: -model is required when the checkpoint does not record its algorithm")
		return exitUsage
	}
	modelID := encoder.RunName(*checkpoint)

	trainTree, err := dataset.Scan(layout.SplitDir(*task, workspace.TrainSplit))
	if err != nil {
		fmt.Fprintf(os.Stderr, "trainctl: %v\n", err)
		return exitFail
	}
	classes := trainTree.ClassNames()

	trainSamples := trainTree.Samples
	var testSamples []dataset.Sample

	testDir := layout.SplitDir(*task, workspace.TestSplit)
	if info, statErr := os.Stat(testDir); statErr == nil && info.IsDir() {
		testTree, err := dataset.Scan(testDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "trainctl: %v\n", err)
			return exitFail
		}
		testSamples = testTree.Samples
	} else if *testFraction > 0 {
		trainSamples, testSamples = dataset.Split(trainTree.Samples, *testFraction, *seed)
	}

	dir := *name
	if dir == "" {
		dir = *task
	}
	setDir := layout.EncodedSetDir(modelName, modelID, dir)

	if err := encodeSplit(enc, trainSamples, classes, modelName, modelID, *task, workspace.TrainSplit,
		filepath.Join(setDir, embedding.TrainFile)); err != nil {
		fmt.Fprintf(os.Stderr, "trainctl: %v\n", err)
		return exitFail
	}
	fmt.Printf("encoded %d train samples\n", len(trainSamples))

	if len(testSamples) > 0 {
		if err := encodeSplit(enc, testSamples, classes, modelName, modelID, *task, workspace.TestSplit,
			filepath.Join(setDir, embedding.TestFile)); err != nil {
			fmt.Fprintf(os.Stderr, "trainctl: %v\n", err)
			return exitFail
		}
		fmt.Printf("encoded %d test samples\n", len(testSamples))
	}

	fmt.Printf("embeddings written to %s\n", setDir)
	return exitOK
}

func encodeSplit(enc *encoder.Encoder, samples []dataset.Sample, classes []string, model, modelID, task, split, path string) error {
	set, err := embedding.Encode(enc, samples, classes)
	if err != nil {
		return err
	}
	set.Model = model
	set.ModelID = modelID
	set.Task = task
	set.Split = split
	return set.Save(path)
}

func runClassify(args []string) int {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	root := fs.String("root", ".", "workspace root directory")
	data := fs.String("data", "", "encoded dataset directory containing train.json.gz and test.json.gz")
	maxIter := fs.Int("max-iter", 1000, "gradient descent iteration limit")
	fs.Parse(args)

	if *data == "" {
		fmt.Fprintln(os.Stderr, "trainctl: -data is required")
		return exitUsage
	}

	layout := workspace.NewLayout(*root)

	trainSet, err := embedding.Load(filepath.Join(*data, embedding.TrainFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "trainctl: %v\n", err)
		return exitFail
	}
	testSet, err := embedding.Load(filepath.Join(*data, embedding.TestFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "trainctl: %v\n", err)
		return exitFail
	}

	classes := len(trainSet.Classes)
	if classes == 0 {
		for _, l := range trainSet.Labels {
			if l+1 > classes {
				classes = l + 1
			}
		}
		for _, l := range testSet.Labels {
			if l+1 > classes {
				classes = l + 1
			}
		}
	}

	model, err := classifier.Train(trainSet.Vectors, trainSet.Labels, classes, classifier.TrainConfig{
		MaxIter: *maxIter,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "trainctl: %v\n", err)
		return exitFail
	}

	accuracy, err := model.Evaluate(testSet.Vectors, testSet.Labels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trainctl: %v\n", err)
		return exitFail
	}

	id := classifier.IDForData(relToRoot(layout.Root, *data))
	saveDir := filepath.Join(layout.ClassifierCheckpoints(), id)
	if err := model.Save(saveDir); err != nil {
		fmt.Fprintf(os.Stderr, "trainctl: %v\n", err)
		return exitFail
	}

	fmt.Printf("Test Accuracy: %.2f%%\n", accuracy*100)
	fmt.Printf("classifier written to %s\n", saveDir)
	return exitOK
}

func relToRoot(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}
