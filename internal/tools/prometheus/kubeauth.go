package prometheus

import (
	"fmt"
	"net/http"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/transport"
)

// serviceAccountRoundTripper wraps rt with the bearer token of the
// surrounding Kubernetes cluster. It prefers the in-cluster service account
// and falls back to the default kubeconfig. Tokens backed by a file are
// refreshed automatically, which matters for bound service account tokens.
func serviceAccountRoundTripper(rt http.RoundTripper) (http.RoundTripper, error) {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
		restConfig, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{}).ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cluster credentials: %w", err)
		}
	}

	if restConfig.BearerTokenFile != "" {
		return transport.NewBearerAuthWithRefreshRoundTripper(restConfig.BearerToken, restConfig.BearerTokenFile, rt)
	}
	if restConfig.BearerToken != "" {
		return transport.NewBearerAuthRoundTripper(restConfig.BearerToken, rt), nil
	}
	return nil, fmt.Errorf("cluster configuration carries no bearer token")
}
