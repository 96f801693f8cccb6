package config

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// ParametersByPathAPI is the part of the SSM client LoadSSM needs.
type ParametersByPathAPI interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// NewSSMClient builds an SSM client from the default AWS credential chain.
func NewSSMClient(ctx context.Context) (*ssm.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return ssm.NewFromConfig(awsCfg), nil
}

// LoadSSM copies every parameter under prefix into cfg, keyed by the last
// path element ("/round/prod/SESSION_SECRET" becomes SESSION_SECRET).
// Parameters override values already in cfg. It returns how many were
// loaded.
func LoadSSM(ctx context.Context, client ParametersByPathAPI, cfg map[string]string, prefix string) (int, error) {
	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(prefix),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})

	loaded := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return loaded, fmt.Errorf("reading ssm parameters under %s: %w", prefix, err)
		}
		for _, p := range page.Parameters {
			name := path.Base(aws.ToString(p.Name))
			if name == "" || name == "." || name == "/" {
				continue
			}
			cfg[strings.ToUpper(name)] = aws.ToString(p.Value)
			loaded++
		}
	}
	log.Info().Str("path", prefix).Int("parameters", loaded).Msg("Loaded configuration from SSM")
	return loaded, nil
}
