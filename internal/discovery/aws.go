package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	taggingtypes "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/catherinevee/importmgr/internal/locator"
	"github.com/catherinevee/importmgr/internal/logger"
	"github.com/catherinevee/importmgr/pkg/models"
)

// AWSClient implements CloudClient against the AWS SDK. All calls are
// list/describe/get only.
type AWSClient struct {
	cfg       aws.Config
	accountID string
	region    string
	ec2       *ec2.Client
	s3        *s3.Client
	rds       *rds.Client
	tagging   *resourcegroupstaggingapi.Client
	log       logger.Logger
}

// NewAWSClient loads default credentials for the given region and
// resolves the caller's account ID.
func NewAWSClient(ctx context.Context, region string) (*AWSClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	identity, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve caller identity: %w", err)
	}

	return &AWSClient{
		cfg:       cfg,
		accountID: aws.ToString(identity.Account),
		region:    region,
		ec2:       ec2.NewFromConfig(cfg),
		s3:        s3.NewFromConfig(cfg),
		rds:       rds.NewFromConfig(cfg),
		tagging:   resourcegroupstaggingapi.NewFromConfig(cfg),
		log:       logger.New("aws"),
	}, nil
}

func (c *AWSClient) AccountID() string { return c.accountID }

// Config exposes the loaded SDK configuration so other service clients
// can share the same credentials and region.
func (c *AWSClient) Config() aws.Config { return c.cfg }

func (c *AWSClient) Region() string { return c.region }

// ListComputeInstances enumerates EC2 instances, skipping terminated ones.
func (c *AWSClient) ListComputeInstances(ctx context.Context) ([]models.DiscoveredResource, error) {
	var resources []models.DiscoveredResource

	paginator := ec2.NewDescribeInstancesPaginator(c.ec2, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return resources, err
		}
		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				if instance.State != nil && instance.State.Name == ec2types.InstanceStateNameTerminated {
					continue
				}
				resources = append(resources, models.DiscoveredResource{
					Service: "ec2",
					Type:    "aws_instance",
					ID:      aws.ToString(instance.InstanceId),
					Region:  c.region,
					Tags:    convertEC2Tags(instance.Tags),
					Details: map[string]interface{}{
						"instance_type": string(instance.InstanceType),
						"state":         instanceState(instance),
						"vpc_id":        aws.ToString(instance.VpcId),
						"subnet_id":     aws.ToString(instance.SubnetId),
						"public_ip":     aws.ToString(instance.PublicIpAddress),
						"private_ip":    aws.ToString(instance.PrivateIpAddress),
					},
				})
			}
		}
	}
	return resources, nil
}

// ListStorageBuckets enumerates S3 buckets. Bucket tags require a
// separate per-bucket call and are left empty here.
func (c *AWSClient) ListStorageBuckets(ctx context.Context) ([]models.DiscoveredResource, error) {
	result, err := c.s3.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, err
	}

	var resources []models.DiscoveredResource
	for _, bucket := range result.Buckets {
		details := map[string]interface{}{}
		if bucket.CreationDate != nil {
			details["creation_date"] = bucket.CreationDate.String()
		}
		resources = append(resources, models.DiscoveredResource{
			Service: "s3",
			Type:    "aws_s3_bucket",
			ID:      aws.ToString(bucket.Name),
			Region:  c.region,
			Tags:    map[string]string{},
			Details: details,
		})
	}
	return resources, nil
}

// ListDatabases enumerates RDS instances.
func (c *AWSClient) ListDatabases(ctx context.Context) ([]models.DiscoveredResource, error) {
	var resources []models.DiscoveredResource

	paginator := rds.NewDescribeDBInstancesPaginator(c.rds, &rds.DescribeDBInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return resources, err
		}
		for _, db := range page.DBInstances {
			tags := make(map[string]string, len(db.TagList))
			for _, tag := range db.TagList {
				tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
			}
			resources = append(resources, models.DiscoveredResource{
				Service: "rds",
				Type:    "aws_db_instance",
				ID:      aws.ToString(db.DBInstanceIdentifier),
				Region:  c.region,
				Tags:    tags,
				Details: map[string]interface{}{
					"engine":              aws.ToString(db.Engine),
					"engine_version":      aws.ToString(db.EngineVersion),
					"instance_class":      aws.ToString(db.DBInstanceClass),
					"publicly_accessible": aws.ToBool(db.PubliclyAccessible),
					"storage_encrypted":   aws.ToBool(db.StorageEncrypted),
					"multi_az":            aws.ToBool(db.MultiAZ),
				},
			})
		}
	}
	return resources, nil
}

// ListTaggedResources enumerates via the Resource Groups Tagging API.
// Locators that cannot be parsed still yield a record with unknown
// components rather than aborting the page.
func (c *AWSClient) ListTaggedResources(ctx context.Context, services []string, filters map[string]string, limit int) ([]models.DiscoveredResource, error) {
	input := &resourcegroupstaggingapi.GetResourcesInput{
		ResourcesPerPage: aws.Int32(50),
	}
	if len(services) > 0 {
		input.ResourceTypeFilters = services
	}
	for key, value := range filters {
		tagKey := strings.TrimPrefix(key, "tag:")
		input.TagFilters = append(input.TagFilters, taggingtypes.TagFilter{
			Key:    aws.String(tagKey),
			Values: []string{value},
		})
	}

	var resources []models.DiscoveredResource
	paginator := resourcegroupstaggingapi.NewGetResourcesPaginator(c.tagging, input)
	for paginator.HasMorePages() && len(resources) < limit {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return resources, err
		}
		for _, mapping := range page.ResourceTagMappingList {
			if len(resources) >= limit {
				break
			}
			loc := locator.Resolve(aws.ToString(mapping.ResourceARN))
			tags := make(map[string]string, len(mapping.Tags))
			for _, tag := range mapping.Tags {
				tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
			}
			resources = append(resources, models.DiscoveredResource{
				Service: loc.Service,
				Type:    terraformType(loc),
				ID:      loc.ResourceID,
				Region:  regionOrDefault(loc.Region, c.region),
				Tags:    tags,
				Details: map[string]interface{}{
					"arn": aws.ToString(mapping.ResourceARN),
				},
			})
		}
	}
	return resources, nil
}

// GetBucketPublicAccessBlock reports whether all four public-access
// block settings are enabled. A missing configuration reads as not
// blocked rather than an error.
func (c *AWSClient) GetBucketPublicAccessBlock(ctx context.Context, bucket string) (bool, error) {
	out, err := c.s3.GetPublicAccessBlock(ctx, &s3.GetPublicAccessBlockInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		if isErrorCode(err, "NoSuchPublicAccessBlockConfiguration") {
			return false, nil
		}
		return false, err
	}
	cfg := out.PublicAccessBlockConfiguration
	if cfg == nil {
		return false, nil
	}
	return aws.ToBool(cfg.BlockPublicAcls) &&
		aws.ToBool(cfg.BlockPublicPolicy) &&
		aws.ToBool(cfg.IgnorePublicAcls) &&
		aws.ToBool(cfg.RestrictPublicBuckets), nil
}

// GetBucketEncryption reports whether server-side encryption is
// configured. A missing configuration reads as unencrypted.
func (c *AWSClient) GetBucketEncryption(ctx context.Context, bucket string) (bool, error) {
	out, err := c.s3.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		if isErrorCode(err, "ServerSideEncryptionConfigurationNotFound") {
			return false, nil
		}
		return false, err
	}
	return out.ServerSideEncryptionConfiguration != nil &&
		len(out.ServerSideEncryptionConfiguration.Rules) > 0, nil
}

// isErrorCode matches a service API error by its documented code.
func isErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == code
}

func convertEC2Tags(tags []ec2types.Tag) map[string]string {
	result := make(map[string]string, len(tags))
	for _, tag := range tags {
		key := aws.ToString(tag.Key)
		if key != "" {
			result[key] = aws.ToString(tag.Value)
		}
	}
	return result
}

func instanceState(instance ec2types.Instance) string {
	if instance.State == nil {
		return ""
	}
	return string(instance.State.Name)
}

// terraformType maps a parsed locator to a Terraform resource type for
// the services the pipeline knows; everything else keeps the raw type.
func terraformType(loc models.ResourceLocator) string {
	switch loc.Service {
	case "ec2":
		if loc.Type == "instance" {
			return "aws_instance"
		}
	case "s3":
		return "aws_s3_bucket"
	case "rds":
		return "aws_db_instance"
	}
	if loc.Type == models.UnknownComponent {
		return loc.Service
	}
	return loc.Type
}

func regionOrDefault(region, fallback string) string {
	if region == "" || region == models.UnknownComponent {
		return fallback
	}
	return region
}
