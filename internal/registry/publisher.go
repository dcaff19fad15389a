// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package registry builds the container image locally and publishes it to
// the remote registry under two tags: a mutable pointer that follows the
// newest build and an immutable marker set on first publication only.
package registry

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/tidwall/gjson"
)

// ECRAPI is the subset of the ECR client the publisher uses.
type ECRAPI interface {
	GetAuthorizationToken(ctx context.Context, params *ecr.GetAuthorizationTokenInput, optFns ...func(*ecr.Options)) (*ecr.GetAuthorizationTokenOutput, error)
	DescribeImages(ctx context.Context, params *ecr.DescribeImagesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeImagesOutput, error)
}

// STSAPI resolves the account identifier for the derived registry address.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Runner executes a local command with optional stdin and returns its
// combined output. The default implementation shells out to the binary.
type Runner interface {
	Run(ctx context.Context, stdin, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}

	return string(out), nil
}

type Request struct {
	ContextDir    string
	Repository    string
	Region        string
	DiscoveredURI string
	MutableTag    string
	InitialTag    string
}

// Publication describes the published artifact.
type Publication struct {
	Address string
	Tags    []string
	Digest  string
	ImageID string
}

type PublishError struct {
	Step string
	Err  error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish: %s failed: %v", e.Step, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

type Publisher struct {
	ecr ECRAPI
	sts STSAPI
	run Runner
}

func NewPublisher(ecrClient ECRAPI, stsClient STSAPI) *Publisher {
	return &Publisher{ecr: ecrClient, sts: stsClient, run: execRunner{}}
}

// NewPublisherWithRunner is used by tests to replace the local command
// execution.
func NewPublisherWithRunner(ecrClient ECRAPI, stsClient STSAPI, run Runner) *Publisher {
	return &Publisher{ecr: ecrClient, sts: stsClient, run: run}
}

// Publish builds the image, authenticates against the registry and pushes
// the mutable tag. The initial marker is pushed only when the registry
// does not hold it yet; once set it is never moved.
func (p *Publisher) Publish(ctx context.Context, req Request) (*Publication, error) {
	account := ""
	if req.DiscoveredURI == "" {
		identity, err := p.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err != nil {
			return nil, &PublishError{Step: "resolve account", Err: err}
		}
		account = aws.ToString(identity.Account)
	}
	address := ResolveAddress(req.DiscoveredURI, account, req.Region, req.Repository)

	mutableRef := address + ":" + req.MutableTag
	initialRef := address + ":" + req.InitialTag

	if _, err := p.run.Run(ctx, "", "docker", "build", "-t", mutableRef, req.ContextDir); err != nil {
		return nil, &PublishError{Step: "build", Err: err}
	}

	imageID := p.localImageID(ctx, mutableRef)

	registry, username, password, err := p.authorization(ctx)
	if err != nil {
		return nil, &PublishError{Step: "authenticate", Err: err}
	}
	if _, err := p.run.Run(ctx, password, "docker", "login", "--username", username, "--password-stdin", registry); err != nil {
		return nil, &PublishError{Step: "authenticate", Err: err}
	}

	if _, err := p.run.Run(ctx, "", "docker", "push", mutableRef); err != nil {
		return nil, &PublishError{Step: "push " + req.MutableTag, Err: err}
	}

	tags := []string{req.MutableTag}
	initialExists, err := p.tagExists(ctx, req.Repository, req.InitialTag)
	if err != nil {
		return nil, &PublishError{Step: "inspect " + req.InitialTag, Err: err}
	}
	if initialExists {
		slog.Debug("Initial tag already published, leaving it in place", "tag", req.InitialTag)
	} else {
		if _, err := p.run.Run(ctx, "", "docker", "tag", mutableRef, initialRef); err != nil {
			return nil, &PublishError{Step: "tag " + req.InitialTag, Err: err}
		}
		if _, err := p.run.Run(ctx, "", "docker", "push", initialRef); err != nil {
			return nil, &PublishError{Step: "push " + req.InitialTag, Err: err}
		}
		tags = append(tags, req.InitialTag)

		if err := p.verifySameDigest(ctx, req.Repository, req.MutableTag, req.InitialTag); err != nil {
			return nil, &PublishError{Step: "verify tags", Err: err}
		}
	}

	digest, err := p.remoteDigest(ctx, req.Repository, req.MutableTag)
	if err != nil {
		return nil, &PublishError{Step: "inspect " + req.MutableTag, Err: err}
	}

	return &Publication{
		Address: address,
		Tags:    tags,
		Digest:  digest,
		ImageID: imageID,
	}, nil
}

// authorization decodes the registry token into endpoint and credentials.
// The token is base64 over "user:password".
func (p *Publisher) authorization(ctx context.Context) (registry, username, password string, err error) {
	out, err := p.ecr.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return "", "", "", err
	}
	if len(out.AuthorizationData) == 0 {
		return "", "", "", fmt.Errorf("registry returned no authorization data")
	}

	data := out.AuthorizationData[0]
	decoded, err := base64.StdEncoding.DecodeString(aws.ToString(data.AuthorizationToken))
	if err != nil {
		return "", "", "", fmt.Errorf("decode authorization token: %w", err)
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", "", fmt.Errorf("malformed authorization token")
	}

	return strings.TrimPrefix(aws.ToString(data.ProxyEndpoint), "https://"), username, password, nil
}

func (p *Publisher) tagExists(ctx context.Context, repository, tag string) (bool, error) {
	_, err := p.ecr.DescribeImages(ctx, describeImagesInput(repository, tag))
	if err != nil {
		if isImageNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (p *Publisher) remoteDigest(ctx context.Context, repository, tag string) (string, error) {
	out, err := p.ecr.DescribeImages(ctx, describeImagesInput(repository, tag))
	if err != nil {
		return "", err
	}
	if len(out.ImageDetails) == 0 {
		return "", fmt.Errorf("tag %s not found in repository %s", tag, repository)
	}

	return aws.ToString(out.ImageDetails[0].ImageDigest), nil
}

func (p *Publisher) verifySameDigest(ctx context.Context, repository, tagA, tagB string) error {
	digestA, err := p.remoteDigest(ctx, repository, tagA)
	if err != nil {
		return err
	}
	digestB, err := p.remoteDigest(ctx, repository, tagB)
	if err != nil {
		return err
	}
	if digestA != digestB {
		return fmt.Errorf("tags %s and %s point at different content (%s vs %s)", tagA, tagB, digestA, digestB)
	}

	return nil
}

// localImageID reads the built image ID for the log trace. Failures here
// are informational only.
func (p *Publisher) localImageID(ctx context.Context, ref string) string {
	out, err := p.run.Run(ctx, "", "docker", "image", "inspect", ref, "--format", "json")
	if err != nil {
		slog.Debug("Could not inspect built image", "ref", ref, "error", err)
		return ""
	}

	return gjson.Get(out, "0.Id").String()
}

func describeImagesInput(repository, tag string) *ecr.DescribeImagesInput {
	return &ecr.DescribeImagesInput{
		RepositoryName: aws.String(repository),
		ImageIds:       []ecrtypes.ImageIdentifier{{ImageTag: aws.String(tag)}},
	}
}

func isImageNotFound(err error) bool {
	var notFound *ecrtypes.ImageNotFoundException
	if errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "ImageNotFoundException"
	}

	return false
}
