package k8s

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ErrNotFound is returned when a workspace namespace has no usable pod.
var ErrNotFound = fmt.Errorf("no pod found in workspace")

const (
	discoveryTimeout = 10 * time.Second
	podCacheTTL      = 30 * time.Second
)

// Discovery resolves workspace names to their runtime pod.
type Discovery struct {
	client      *Client
	cache       *Cache
	rateLimiter *RateLimiter
}

// NewDiscovery creates a workspace→pod resolver on top of an existing client.
func NewDiscovery(client *Client, rps int) *Discovery {
	return &Discovery{
		client:      client,
		cache:       NewCache(podCacheTTL),
		rateLimiter: NewRateLimiter(rps),
	}
}

// FindPod returns the runtime pod for a workspace namespace. Running pods win
// over pending or terminating ones; among running pods the most recently
// started wins, since a fresh pod after a crash loop is the one to inspect.
func (d *Discovery) FindPod(ctx context.Context, workspace string) (*PodInfo, error) {
	if cached := d.cache.Get(workspace); cached != nil {
		slog.Debug("pod cache hit",
			slog.String("workspace", workspace),
			slog.String("pod", cached.Name),
		)
		return cached, nil
	}

	if err := d.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	pods, err := d.client.Clientset().CoreV1().Pods(workspace).List(queryCtx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods in %s: %w", workspace, err)
	}
	if len(pods.Items) == 0 {
		return nil, fmt.Errorf("%w %s", ErrNotFound, workspace)
	}

	pod := pickPod(pods.Items)
	if pod == nil {
		return nil, fmt.Errorf("%w %s", ErrNotFound, workspace)
	}

	info := &PodInfo{
		Name:      pod.Name,
		Namespace: pod.Namespace,
		Phase:     string(pod.Status.Phase),
		Node:      pod.Spec.NodeName,
	}
	if pod.Status.StartTime != nil {
		info.StartedAt = pod.Status.StartTime.Time
	}

	// Only cache pods we can actually exec into.
	if pod.Status.Phase == corev1.PodRunning {
		d.cache.Set(workspace, info)
	}

	slog.Debug("resolved workspace pod",
		slog.String("workspace", workspace),
		slog.String("pod", info.Name),
		slog.String("phase", info.Phase),
	)

	return info, nil
}

// Invalidate drops the cached pod for a workspace. Callers use it after
// operations that may restart the pod.
func (d *Discovery) Invalidate(workspace string) {
	d.cache.Invalidate(workspace)
}

func pickPod(pods []corev1.Pod) *corev1.Pod {
	candidates := make([]*corev1.Pod, 0, len(pods))
	for i := range pods {
		if pods[i].DeletionTimestamp != nil {
			continue
		}
		candidates = append(candidates, &pods[i])
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ri := candidates[i].Status.Phase == corev1.PodRunning
		rj := candidates[j].Status.Phase == corev1.PodRunning
		if ri != rj {
			return ri
		}
		return podStart(candidates[i]).After(podStart(candidates[j]))
	})

	return candidates[0]
}

func podStart(pod *corev1.Pod) time.Time {
	if pod.Status.StartTime != nil {
		return pod.Status.StartTime.Time
	}
	return pod.CreationTimestamp.Time
}

// ContainerStatus summarizes one container of a pod for health display.
type ContainerStatus struct {
	Name         string
	Ready        bool
	RestartCount int32
	State        string
	Reason       string
}

// PodStatus returns per-container state for the workspace pod, including
// crash loop and OOMKilled reasons from the last termination.
func (d *Discovery) PodStatus(ctx context.Context, workspace, podName string) ([]ContainerStatus, error) {
	if err := d.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	pod, err := d.client.Clientset().CoreV1().Pods(workspace).Get(queryCtx, podName, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get pod %s/%s: %w", workspace, podName, err)
	}

	statuses := make([]ContainerStatus, 0, len(pod.Status.ContainerStatuses))
	for _, cs := range pod.Status.ContainerStatuses {
		status := ContainerStatus{
			Name:         cs.Name,
			Ready:        cs.Ready,
			RestartCount: cs.RestartCount,
		}
		switch {
		case cs.State.Running != nil:
			status.State = "running"
		case cs.State.Waiting != nil:
			status.State = "waiting"
			status.Reason = cs.State.Waiting.Reason
		case cs.State.Terminated != nil:
			status.State = "terminated"
			status.Reason = cs.State.Terminated.Reason
		}
		// A running container that restarted recently carries its death cause
		// in LastTerminationState. OOMKilled shows up here.
		if status.Reason == "" && cs.LastTerminationState.Terminated != nil {
			status.Reason = "last: " + cs.LastTerminationState.Terminated.Reason
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

// Event is one recent Kubernetes event scoped to a pod.
type Event struct {
	Time    time.Time
	Type    string
	Reason  string
	Message string
}

// PodEvents returns recent events for a pod, oldest first.
func (d *Discovery) PodEvents(ctx context.Context, workspace, podName string) ([]Event, error) {
	if err := d.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	list, err := d.client.Clientset().CoreV1().Events(workspace).List(queryCtx, metav1.ListOptions{
		FieldSelector: fmt.Sprintf("involvedObject.name=%s", podName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events for %s/%s: %w", workspace, podName, err)
	}

	events := make([]Event, 0, len(list.Items))
	for _, item := range list.Items {
		when := item.LastTimestamp.Time
		if when.IsZero() {
			when = item.FirstTimestamp.Time
		}
		events = append(events, Event{
			Time:    when,
			Type:    item.Type,
			Reason:  item.Reason,
			Message: item.Message,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.Before(events[j].Time)
	})

	return events, nil
}
