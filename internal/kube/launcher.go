// Package kube launches training runs as Kubernetes batch Jobs. The launcher
// is optional: when disabled in config every call reports unavailability and
// runs execute locally instead.
package kube

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"training-workspace-service/internal/config"
	"training-workspace-service/internal/domain"
)

var jobGVR = schema.GroupVersionResource{
	Group:    "batch",
	Version:  "v1",
	Resource: "jobs",
}

// JobStatus is the condensed state of a launched training Job.
type JobStatus struct {
	Active    int64
	Succeeded int64
	Failed    int64
	Done      bool
	Error     string
}

// Launcher submits and tracks training Jobs.
type Launcher interface {
	IsAvailable() bool
	Launch(ctx context.Context, run *domain.TrainingRun) (string, error)
	Status(ctx context.Context, jobName string) (*JobStatus, error)
	Delete(ctx context.Context, jobName string) error
}

type jobLauncher struct {
	client    dynamic.Interface
	enabled   bool
	namespace string
	image     string
}

// Disabled returns a launcher that rejects every call. It stands in when the
// integration is off or failed to initialize.
func Disabled() Launcher {
	return &jobLauncher{enabled: false}
}

// NewLauncher builds a Job launcher from config. When cfg.Enabled is false it
// returns a disabled launcher without touching the cluster.
func NewLauncher(cfg *config.KubernetesConfig) (Launcher, error) {
	if !cfg.Enabled {
		return Disabled(), nil
	}

	var restCfg *rest.Config
	var err error

	if cfg.InCluster {
		restCfg, err = rest.InClusterConfig()
	} else if cfg.KubeConfigPath != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.KubeConfigPath)
	} else {
		// Try default kubeconfig location
		home, _ := os.UserHomeDir()
		kubeconfig := filepath.Join(home, ".kube", "config")
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	client, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "training"
	}

	return &jobLauncher{
		client:    client,
		enabled:   true,
		namespace: namespace,
		image:     cfg.JobImage,
	}, nil
}

func (l *jobLauncher) IsAvailable() bool {
	return l.enabled
}

// Launch submits a Job that runs the trainctl train command for run and
// returns the Job name.
func (l *jobLauncher) Launch(ctx context.Context, run *domain.TrainingRun) (string, error) {
	if !l.enabled {
		return "", domain.ErrLauncherDisabled
	}

	jobName := fmt.Sprintf("pretrain-%s", run.ID)
	obj := l.buildJob(jobName, run)

	created, err := l.client.Resource(jobGVR).
		Namespace(l.namespace).
		Create(ctx, obj, metav1.CreateOptions{})
	if err != nil {
		return "", fmt.Errorf("create training job: %w", err)
	}

	return created.GetName(), nil
}

func (l *jobLauncher) Status(ctx context.Context, jobName string) (*JobStatus, error) {
	if !l.enabled {
		return nil, domain.ErrLauncherDisabled
	}

	obj, err := l.client.Resource(jobGVR).
		Namespace(l.namespace).
		Get(ctx, jobName, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("get training job: %w", err)
	}

	return parseJobStatus(obj), nil
}

func (l *jobLauncher) Delete(ctx context.Context, jobName string) error {
	if !l.enabled {
		return domain.ErrLauncherDisabled
	}

	policy := metav1.DeletePropagationBackground
	err := l.client.Resource(jobGVR).
		Namespace(l.namespace).
		Delete(ctx, jobName, metav1.DeleteOptions{PropagationPolicy: &policy})
	if err != nil {
		return fmt.Errorf("delete training job: %w", err)
	}

	return nil
}

func (l *jobLauncher) buildJob(jobName string, run *domain.TrainingRun) *unstructured.Unstructured {
	labels := map[string]interface{}{
		"trainingworkspace.ai-platform/run-id":    run.ID.String(),
		"trainingworkspace.ai-platform/algorithm": string(run.Algorithm),
	}

	args := []interface{}{
		"train",
		"-algorithm", string(run.Algorithm),
		"-dataset", run.DatasetName,
		"-batch", strconv.Itoa(run.BatchSize),
		"-epochs", strconv.Itoa(run.Epochs),
		"-out-features", strconv.Itoa(run.OutFeatures),
		"-tau", strconv.FormatFloat(run.Tau, 'g', -1, 64),
		"-tau-s", strconv.FormatFloat(run.TauS, 'g', -1, 64),
		"-seed", strconv.FormatInt(run.Seed, 10),
	}

	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "batch/v1",
			"kind":       "Job",
			"metadata": map[string]interface{}{
				"name":   jobName,
				"labels": labels,
			},
			"spec": map[string]interface{}{
				"backoffLimit": int64(0),
				"template": map[string]interface{}{
					"metadata": map[string]interface{}{
						"labels": labels,
					},
					"spec": map[string]interface{}{
						"restartPolicy": "Never",
						"containers": []interface{}{
							map[string]interface{}{
								"name":  "trainer",
								"image": l.image,
								"args":  args,
							},
						},
					},
				},
			},
		},
	}
}

func parseJobStatus(obj *unstructured.Unstructured) *JobStatus {
	status := &JobStatus{}

	statusMap, found, _ := unstructured.NestedMap(obj.Object, "status")
	if !found {
		return status
	}

	status.Active, _, _ = unstructured.NestedInt64(statusMap, "active")
	status.Succeeded, _, _ = unstructured.NestedInt64(statusMap, "succeeded")
	status.Failed, _, _ = unstructured.NestedInt64(statusMap, "failed")

	conditions, found, _ := unstructured.NestedSlice(statusMap, "conditions")
	if found {
		for _, cond := range conditions {
			condMap, ok := cond.(map[string]interface{})
			if !ok {
				continue
			}
			condType, _ := condMap["type"].(string)
			condStatus, _ := condMap["status"].(string)
			if condStatus != "True" {
				continue
			}

			switch condType {
			case "Complete":
				status.Done = true
			case "Failed":
				status.Done = true
				if msg, ok := condMap["message"].(string); ok {
					status.Error = msg
				}
			}
		}
	}

	return status
}

// Ensure interface compliance
var _ Launcher = (*jobLauncher)(nil)
