// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

//go:build unit

package registry

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeECR struct {
	digests   map[string]string // tag -> digest
	authErr   error
	tokenUser string
}

func (f *fakeECR) GetAuthorizationToken(ctx context.Context, params *ecr.GetAuthorizationTokenInput, optFns ...func(*ecr.Options)) (*ecr.GetAuthorizationTokenOutput, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	user := f.tokenUser
	if user == "" {
		user = "AWS"
	}
	token := base64.StdEncoding.EncodeToString([]byte(user + ":secret"))
	return &ecr.GetAuthorizationTokenOutput{
		AuthorizationData: []ecrtypes.AuthorizationData{{
			AuthorizationToken: aws.String(token),
			ProxyEndpoint:      aws.String("https://123456789012.dkr.ecr.us-east-1.amazonaws.com"),
		}},
	}, nil
}

func (f *fakeECR) DescribeImages(ctx context.Context, params *ecr.DescribeImagesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeImagesOutput, error) {
	tag := aws.ToString(params.ImageIds[0].ImageTag)
	digest, ok := f.digests[tag]
	if !ok {
		return nil, &ecrtypes.ImageNotFoundException{Message: aws.String("image not found")}
	}
	return &ecr.DescribeImagesOutput{
		ImageDetails: []ecrtypes.ImageDetail{{ImageDigest: aws.String(digest)}},
	}, nil
}

type fakeSTS struct {
	account string
	err     error
	calls   int
}

func (f *fakeSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Account: aws.String(f.account)}, nil
}

// recordingRunner captures local commands and simulates push side effects
// against the fake registry.
type recordingRunner struct {
	commands []string
	stdins   []string
	failOn   string
	registry *fakeECR
	digest   string
}

func (r *recordingRunner) Run(ctx context.Context, stdin, name string, args ...string) (string, error) {
	cmd := name + " " + strings.Join(args, " ")
	r.commands = append(r.commands, cmd)
	r.stdins = append(r.stdins, stdin)
	if r.failOn != "" && strings.HasPrefix(cmd, r.failOn) {
		return "", fmt.Errorf("simulated failure for %q", cmd)
	}
	if args[0] == "push" && r.registry != nil {
		ref := args[len(args)-1]
		tag := ref[strings.LastIndex(ref, ":")+1:]
		if r.registry.digests == nil {
			r.registry.digests = map[string]string{}
		}
		r.registry.digests[tag] = r.digest
	}
	if args[0] == "image" {
		return `[{"Id":"sha256:abc123"}]`, nil
	}
	return "", nil
}

func publishRequest() Request {
	return Request{
		ContextDir: ".",
		Repository: "demo-app",
		Region:     "us-east-1",
		MutableTag: "latest",
		InitialTag: "initial",
	}
}

func TestPublish(t *testing.T) {
	t.Run("first publication pushes both tags with identical digests", func(t *testing.T) {
		registry := &fakeECR{}
		runner := &recordingRunner{registry: registry, digest: "sha256:feed"}
		p := NewPublisherWithRunner(registry, &fakeSTS{account: "123456789012"}, runner)

		pub, err := p.Publish(context.Background(), publishRequest())
		require.NoError(t, err)

		assert.Equal(t, "123456789012.dkr.ecr.us-east-1.amazonaws.com/demo-app", pub.Address)
		assert.ElementsMatch(t, []string{"latest", "initial"}, pub.Tags)
		assert.Equal(t, "sha256:feed", pub.Digest)
		assert.Equal(t, "sha256:abc123", pub.ImageID)
		assert.Equal(t, registry.digests["latest"], registry.digests["initial"])

		joined := strings.Join(runner.commands, "\n")
		assert.Contains(t, joined, "docker build -t 123456789012.dkr.ecr.us-east-1.amazonaws.com/demo-app:latest .")
		assert.Contains(t, joined, "docker login --username AWS --password-stdin 123456789012.dkr.ecr.us-east-1.amazonaws.com")
		assert.Contains(t, joined, "docker push 123456789012.dkr.ecr.us-east-1.amazonaws.com/demo-app:latest")
		assert.Contains(t, joined, "docker push 123456789012.dkr.ecr.us-east-1.amazonaws.com/demo-app:initial")
	})

	t.Run("login password travels via stdin only", func(t *testing.T) {
		registry := &fakeECR{}
		runner := &recordingRunner{registry: registry, digest: "sha256:feed"}
		p := NewPublisherWithRunner(registry, &fakeSTS{account: "123456789012"}, runner)

		_, err := p.Publish(context.Background(), publishRequest())
		require.NoError(t, err)

		for i, cmd := range runner.commands {
			if strings.Contains(cmd, "login") {
				assert.Equal(t, "secret", runner.stdins[i])
				assert.NotContains(t, cmd, "secret")
			}
		}
	})

	t.Run("existing initial marker is never moved", func(t *testing.T) {
		registry := &fakeECR{digests: map[string]string{"initial": "sha256:old"}}
		runner := &recordingRunner{registry: registry, digest: "sha256:new"}
		p := NewPublisherWithRunner(registry, &fakeSTS{account: "123456789012"}, runner)

		pub, err := p.Publish(context.Background(), publishRequest())
		require.NoError(t, err)

		assert.Equal(t, []string{"latest"}, pub.Tags)
		assert.Equal(t, "sha256:old", registry.digests["initial"])
		assert.NotContains(t, strings.Join(runner.commands, "\n"), "push 123456789012.dkr.ecr.us-east-1.amazonaws.com/demo-app:initial")
	})

	t.Run("discovered registry address skips account resolution", func(t *testing.T) {
		registry := &fakeECR{}
		runner := &recordingRunner{registry: registry, digest: "sha256:feed"}
		stsClient := &fakeSTS{account: "123456789012"}
		p := NewPublisherWithRunner(registry, stsClient, runner)

		req := publishRequest()
		req.DiscoveredURI = "registry.example.com/demo-app"
		pub, err := p.Publish(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, "registry.example.com/demo-app", pub.Address)
		assert.Zero(t, stsClient.calls)
	})

	t.Run("build failure aborts before any push", func(t *testing.T) {
		registry := &fakeECR{}
		runner := &recordingRunner{registry: registry, failOn: "docker build"}
		p := NewPublisherWithRunner(registry, &fakeSTS{account: "123456789012"}, runner)

		_, err := p.Publish(context.Background(), publishRequest())
		var publishErr *PublishError
		require.ErrorAs(t, err, &publishErr)
		assert.Equal(t, "build", publishErr.Step)
		assert.Empty(t, registry.digests)
	})

	t.Run("authentication failure surfaces as publish error", func(t *testing.T) {
		registry := &fakeECR{authErr: fmt.Errorf("access denied")}
		runner := &recordingRunner{registry: registry}
		p := NewPublisherWithRunner(registry, &fakeSTS{account: "123456789012"}, runner)

		_, err := p.Publish(context.Background(), publishRequest())
		var publishErr *PublishError
		require.ErrorAs(t, err, &publishErr)
		assert.Equal(t, "authenticate", publishErr.Step)
	})
}
