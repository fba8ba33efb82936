package lint

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/topology"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/models"
)

var (
	rdsIdentifierRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]{0,62}$`)
	ecsNameRe       = regexp.MustCompile(`^[A-Za-z0-9_-]{1,255}$`)
)

// DefaultRules returns the built-in rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "k8s-name", Description: "Namespaces are DNS-1123 labels and workloads DNS-1123 subdomains", Check: checkK8sNames},
		{Name: "rds-identifier", Description: "RDS identifiers start with a letter and contain only letters, digits and single hyphens", Check: checkRDSIdentifiers},
		{Name: "ecs-name", Description: "ECS cluster and service names use letters, digits, hyphens and underscores", Check: checkECSNames},
		{Name: "engine-downgrade", Description: "Patched engine versions are not lower than the current version", Check: checkEngineDowngrade},
		{Name: "noop-patch", Description: "Patch values differ from the current values", Check: checkNoopPatch},
		{Name: "duplicate-reference", Description: "Operators reference each resource once", Check: checkDuplicateReferences},
		{Name: "unassigned-resource", Description: "Every resource is assigned to an operator", Check: checkUnassigned},
	}
}

func databaseRef(db *topology.Database) string {
	return fmt.Sprintf("database %s/%s", db.Region().Name(), db.ID())
}

func serviceRef(svc *topology.ECSService) string {
	return fmt.Sprintf("ecs service %s/%s/%s", svc.Cluster().Region().Name(), svc.Cluster().Name(), svc.Name())
}

func namespaceRef(ns *topology.Namespace) string {
	return fmt.Sprintf("namespace %s/%s", ns.Cluster().Name(), ns.Name())
}

func deploymentRef(d *topology.Deployment) string {
	return fmt.Sprintf("deployment %s/%s/%s", d.Namespace().Cluster().Name(), d.Namespace().Name(), d.Name())
}

func statefulSetRef(s *topology.StatefulSet) string {
	return fmt.Sprintf("statefulset %s/%s/%s", s.Namespace().Cluster().Name(), s.Namespace().Name(), s.Name())
}

type visitor struct {
	database    func(*topology.Database)
	ecsCluster  func(*topology.ECSCluster)
	service     func(*topology.ECSService)
	namespace   func(*topology.Namespace)
	deployment  func(*topology.Deployment)
	statefulSet func(*topology.StatefulSet)
}

// walk visits every resource of the topology in document order.
func walk(topo *topology.Topology, v visitor) {
	for _, region := range topo.Regions() {
		for _, db := range region.Databases() {
			if v.database != nil {
				v.database(db)
			}
		}
		for _, cluster := range region.ECSClusters() {
			if v.ecsCluster != nil {
				v.ecsCluster(cluster)
			}
			for _, svc := range cluster.Services() {
				if v.service != nil {
					v.service(svc)
				}
			}
		}
		for _, cluster := range region.K8sClusters() {
			for _, ns := range cluster.Namespaces() {
				if v.namespace != nil {
					v.namespace(ns)
				}
				for _, sts := range ns.StatefulSets() {
					if v.statefulSet != nil {
						v.statefulSet(sts)
					}
				}
				for _, d := range ns.Deployments() {
					if v.deployment != nil {
						v.deployment(d)
					}
				}
			}
		}
	}
}

func checkK8sNames(in *Input) []models.Finding {
	var findings []models.Finding
	report := func(resource string, errs []string) {
		if len(errs) == 0 {
			return
		}
		findings = append(findings, models.Finding{
			Severity:    models.SeverityError,
			Resource:    resource,
			Description: strings.Join(errs, "; "),
		})
	}
	walk(in.Topology, visitor{
		namespace:   func(ns *topology.Namespace) { report(namespaceRef(ns), validation.IsDNS1123Label(ns.Name())) },
		deployment:  func(d *topology.Deployment) { report(deploymentRef(d), validation.IsDNS1123Subdomain(d.Name())) },
		statefulSet: func(s *topology.StatefulSet) { report(statefulSetRef(s), validation.IsDNS1123Subdomain(s.Name())) },
	})
	return findings
}

func checkRDSIdentifiers(in *Input) []models.Finding {
	var findings []models.Finding
	walk(in.Topology, visitor{database: func(db *topology.Database) {
		id := db.ID()
		if rdsIdentifierRe.MatchString(id) && !strings.HasSuffix(id, "-") && !strings.Contains(id, "--") {
			return
		}
		findings = append(findings, models.Finding{
			Severity:    models.SeverityError,
			Resource:    databaseRef(db),
			Description: fmt.Sprintf("%q is not a valid RDS identifier", id),
		})
	}})
	return findings
}

func checkECSNames(in *Input) []models.Finding {
	var findings []models.Finding
	walk(in.Topology, visitor{
		ecsCluster: func(c *topology.ECSCluster) {
			if !ecsNameRe.MatchString(c.Name()) {
				findings = append(findings, models.Finding{
					Severity:    models.SeverityError,
					Resource:    fmt.Sprintf("ecs cluster %s/%s", c.Region().Name(), c.Name()),
					Description: fmt.Sprintf("%q is not a valid ECS cluster name", c.Name()),
				})
			}
		},
		service: func(svc *topology.ECSService) {
			if !ecsNameRe.MatchString(svc.Name()) {
				findings = append(findings, models.Finding{
					Severity:    models.SeverityError,
					Resource:    serviceRef(svc),
					Description: fmt.Sprintf("%q is not a valid ECS service name", svc.Name()),
				})
			}
		},
	})
	return findings
}

// semverOf turns an engine version such as "13.7" or "8.0.28" into a
// comparable semantic version. Vendor suffixed versions are not comparable.
func semverOf(version string) (string, bool) {
	v := "v" + strings.TrimPrefix(version, "v")
	if !semver.IsValid(v) {
		return "", false
	}
	return v, true
}

func checkEngineDowngrade(in *Input) []models.Finding {
	var findings []models.Finding
	walk(in.Topology, visitor{database: func(db *topology.Database) {
		patch, ok := db.Patch()
		if !ok {
			return
		}
		target, set := patch.EngineVersion.Get()
		if !set || db.EngineVersion() == "" {
			return
		}
		from, okFrom := semverOf(db.EngineVersion())
		to, okTo := semverOf(target)
		if !okFrom || !okTo {
			return
		}
		if semver.Compare(to, from) < 0 {
			findings = append(findings, models.Finding{
				Severity:    models.SeverityWarning,
				Resource:    databaseRef(db),
				Description: fmt.Sprintf("engine version %s is lower than current %s", target, db.EngineVersion()),
			})
		}
	}})
	return findings
}

func checkNoopPatch(in *Input) []models.Finding {
	var findings []models.Finding
	noop := func(resource, field, value string) {
		findings = append(findings, models.Finding{
			Severity:    models.SeverityInfo,
			Resource:    resource,
			Description: fmt.Sprintf("patch sets %s to its current value %s", field, value),
		})
	}
	walk(in.Topology, visitor{
		database: func(db *topology.Database) {
			patch, ok := db.Patch()
			if !ok {
				return
			}
			if v, set := patch.EngineVersion.Get(); set && v == db.EngineVersion() {
				noop(databaseRef(db), "engine_version", v)
			}
			if v, set := patch.ClassType.Get(); set && v == db.ClassType() {
				noop(databaseRef(db), "class_type", v)
			}
		},
		service: func(svc *topology.ECSService) {
			patch, ok := svc.Patch()
			if !ok {
				return
			}
			if v, set := patch.DesiredCount.Get(); set && v == svc.DesiredCount() {
				noop(serviceRef(svc), "desired_count", strconv.Itoa(v))
			}
		},
		deployment: func(d *topology.Deployment) {
			patch, ok := d.Patch()
			if !ok {
				return
			}
			if v, set := patch.Replicas.Get(); set && v == d.Replicas() {
				noop(deploymentRef(d), "replicas", strconv.Itoa(v))
			}
		},
		statefulSet: func(s *topology.StatefulSet) {
			patch, ok := s.Patch()
			if !ok {
				return
			}
			if v, set := patch.Replicas.Get(); set && v == s.Replicas() {
				noop(statefulSetRef(s), "replicas", strconv.Itoa(v))
			}
		},
	})
	return findings
}

// duplicates returns the refs of items that occur more than once, in order
// of first occurrence.
func duplicates[T comparable](items []T, ref func(T) string) []string {
	count := make(map[T]int)
	var order []T
	for _, item := range items {
		if count[item] == 0 {
			order = append(order, item)
		}
		count[item]++
	}
	var out []string
	for _, item := range order {
		if count[item] > 1 {
			out = append(out, fmt.Sprintf("%s (%d times)", ref(item), count[item]))
		}
	}
	return out
}

func checkDuplicateReferences(in *Input) []models.Finding {
	var findings []models.Finding
	for _, op := range in.Operators {
		var refs []string
		refs = append(refs, duplicates(op.Databases(), databaseRef)...)
		refs = append(refs, duplicates(op.ECSServices(), serviceRef)...)
		refs = append(refs, duplicates(op.StatefulSets(), statefulSetRef)...)
		refs = append(refs, duplicates(op.Deployments(), deploymentRef)...)
		for _, r := range refs {
			findings = append(findings, models.Finding{
				Severity:    models.SeverityWarning,
				Resource:    r,
				Operator:    op.ID(),
				Description: "resource is referenced more than once; scripts include it once",
			})
		}
	}
	return findings
}

func checkUnassigned(in *Input) []models.Finding {
	assigned := make(map[any]bool)
	for _, op := range in.Operators {
		for _, db := range op.Databases() {
			assigned[db] = true
		}
		for _, svc := range op.ECSServices() {
			assigned[svc] = true
		}
		for _, s := range op.StatefulSets() {
			assigned[s] = true
		}
		for _, d := range op.Deployments() {
			assigned[d] = true
		}
	}

	var findings []models.Finding
	unassigned := func(resource string) {
		findings = append(findings, models.Finding{
			Severity:    models.SeverityInfo,
			Resource:    resource,
			Description: "no operator is assigned to this resource",
		})
	}
	walk(in.Topology, visitor{
		database: func(db *topology.Database) {
			if !assigned[db] {
				unassigned(databaseRef(db))
			}
		},
		service: func(svc *topology.ECSService) {
			if !assigned[svc] {
				unassigned(serviceRef(svc))
			}
		},
		statefulSet: func(s *topology.StatefulSet) {
			if !assigned[s] {
				unassigned(statefulSetRef(s))
			}
		},
		deployment: func(d *topology.Deployment) {
			if !assigned[d] {
				unassigned(deploymentRef(d))
			}
		},
	})
	return findings
}
