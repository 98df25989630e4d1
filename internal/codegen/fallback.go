package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/catherinevee/importmgr/pkg/models"
)

// fallbackGenerator emits one minimal HCL resource block per discovered
// resource. Templates are keyed by service; unknown services emit a
// commented placeholder rather than failing.
type fallbackGenerator struct {
	region string
}

// generateService renders every resource of one service and returns the
// document fragment plus per-resource snippets keyed by resource key.
func (g fallbackGenerator) generateService(service string, resources []models.DiscoveredResource) (string, map[string]string) {
	var doc strings.Builder
	snippets := make(map[string]string, len(resources))

	doc.WriteString(fmt.Sprintf("# --- %s resources ---\n\n", service))
	for _, resource := range resources {
		snippet := g.resourceBlock(service, resource)
		snippets[resource.Key()] = snippet
		doc.WriteString(snippet)
		doc.WriteString("\n")
	}
	return doc.String(), snippets
}

func (g fallbackGenerator) resourceBlock(service string, resource models.DiscoveredResource) string {
	name := terraformName(resource.ID)

	switch service {
	case "ec2":
		return renderBlock("aws_instance", name, func(body *hclwrite.Body) {
			body.SetAttributeValue("instance_type", cty.StringVal(detailOr(resource, "instance_type", "t3.micro")))
			if subnet := detailOr(resource, "subnet_id", ""); subnet != "" {
				body.SetAttributeValue("subnet_id", cty.StringVal(subnet))
			}
			setTags(body, resource.Tags)
		})
	case "s3":
		return renderBlock("aws_s3_bucket", name, func(body *hclwrite.Body) {
			body.SetAttributeValue("bucket", cty.StringVal(resource.ID))
			setTags(body, resource.Tags)
		})
	case "rds":
		return renderBlock("aws_db_instance", name, func(body *hclwrite.Body) {
			body.SetAttributeValue("identifier", cty.StringVal(resource.ID))
			body.SetAttributeValue("engine", cty.StringVal(detailOr(resource, "engine", "postgres")))
			body.SetAttributeValue("instance_class", cty.StringVal(detailOr(resource, "instance_class", "db.t3.micro")))
			setTags(body, resource.Tags)
		})
	default:
		return fmt.Sprintf("# %s resource %q has no generator template yet; define it manually.\n# resource %q %q {}\n",
			service, resource.ID, resource.Type, name)
	}
}

// header renders the canonical provider/terraform boilerplate, injected
// exactly once into the merged document.
func (g fallbackGenerator) header(projectName string) string {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	tf := body.AppendNewBlock("terraform", nil).Body()
	providers := tf.AppendNewBlock("required_providers", nil).Body()
	providers.SetAttributeValue("aws", cty.ObjectVal(map[string]cty.Value{
		"source":  cty.StringVal("hashicorp/aws"),
		"version": cty.StringVal("~> 5.0"),
	}))
	body.AppendNewline()

	provider := body.AppendNewBlock("provider", []string{"aws"}).Body()
	provider.SetAttributeValue("region", cty.StringVal(g.region))

	return fmt.Sprintf("# Infrastructure for %s\n# Generated by importmgr; review before applying.\n\n%s\n",
		projectName, string(f.Bytes()))
}

func renderBlock(resourceType, name string, fill func(body *hclwrite.Body)) string {
	f := hclwrite.NewEmptyFile()
	block := f.Body().AppendNewBlock("resource", []string{resourceType, name})
	fill(block.Body())
	return string(f.Bytes())
}

func setTags(body *hclwrite.Body, tags map[string]string) {
	if len(tags) == 0 {
		return
	}
	values := make(map[string]cty.Value, len(tags))
	for k, v := range tags {
		values[k] = cty.StringVal(v)
	}
	body.SetAttributeValue("tags", cty.MapVal(values))
}

func detailOr(resource models.DiscoveredResource, key, fallback string) string {
	if v, ok := resource.Details[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// terraformName sanitizes a resource id into a valid Terraform label.
func terraformName(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" {
		return "imported_resource"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "r_" + name
	}
	return name
}

func sortedServices(byService map[string][]models.DiscoveredResource) []string {
	services := make([]string, 0, len(byService))
	for svc := range byService {
		services = append(services, svc)
	}
	sort.Strings(services)
	return services
}
