package topology

import "fmt"

// DatabaseType is the RDS deployment type of a database.
type DatabaseType string

const (
	DatabaseTypeInstance DatabaseType = "instance"
	DatabaseTypeCluster  DatabaseType = "cluster"
)

// EngineType is the database engine of an RDS database.
type EngineType string

const (
	EnginePostgreSQL EngineType = "postgresql"
	EngineMySQL      EngineType = "mysql"
)

// DefaultPort returns the standard port of the engine.
func (e EngineType) DefaultPort() int {
	switch e {
	case EngineMySQL:
		return 3306
	default:
		return 5432
	}
}

// Topology is the root of the model: AWS regions by name.
type Topology struct {
	regions registry[*Region]
}

// New returns an empty Topology.
func New() *Topology {
	return &Topology{regions: newRegistry[*Region]("region")}
}

// AddRegion creates and registers a region.
func (t *Topology) AddRegion(name string) (*Region, error) {
	if name == "" {
		return nil, &SchemaError{Field: "name", Reason: "empty region"}
	}
	region := &Region{
		name:        name,
		ecsClusters: newRegistry[*ECSCluster]("ecs cluster"),
		k8sClusters: newRegistry[*K8sCluster]("eks cluster"),
		databases:   newRegistry[*Database]("database"),
	}
	if err := t.regions.add("topology", name, region); err != nil {
		return nil, err
	}
	return region, nil
}

// Region returns the region registered under name.
func (t *Topology) Region(name string) (*Region, error) {
	return t.regions.get("topology", name)
}

// Regions returns all regions in registration order.
func (t *Topology) Regions() []*Region { return t.regions.list() }

// Region is a top-level AWS namespace.
type Region struct {
	name        string
	ecsClusters registry[*ECSCluster]
	k8sClusters registry[*K8sCluster]
	databases   registry[*Database]
}

// Name returns the region name, e.g. "us-east-1".
func (r *Region) Name() string { return r.name }

func (r *Region) String() string {
	return fmt.Sprintf("Region(name: %s, %d ecs clusters, %d eks clusters, %d databases)",
		r.name, r.ecsClusters.len(), r.k8sClusters.len(), r.databases.len())
}

func (r *Region) ref() string { return "region " + r.name }

// AddECSCluster creates an ECS cluster in this region.
func (r *Region) AddECSCluster(name string) (*ECSCluster, error) {
	if name == "" {
		return nil, &SchemaError{Path: r.ref(), Field: "name", Reason: "empty ecs cluster"}
	}
	cluster := &ECSCluster{
		name:     name,
		region:   r,
		services: newRegistry[*ECSService]("ecs service"),
	}
	if err := r.ecsClusters.add(r.ref(), name, cluster); err != nil {
		return nil, err
	}
	return cluster, nil
}

// ECSCluster returns the ECS cluster registered under name.
func (r *Region) ECSCluster(name string) (*ECSCluster, error) {
	return r.ecsClusters.get(r.ref(), name)
}

// ECSClusters returns the ECS clusters in registration order.
func (r *Region) ECSClusters() []*ECSCluster { return r.ecsClusters.list() }

// AddK8sCluster creates a Kubernetes cluster hosted in this region.
func (r *Region) AddK8sCluster(name string) (*K8sCluster, error) {
	return NewK8sCluster(name, AWSPlatform{region: r})
}

// K8sCluster returns the Kubernetes cluster hosted in this region under name.
func (r *Region) K8sCluster(name string) (*K8sCluster, error) {
	return r.k8sClusters.get(r.ref(), name)
}

// K8sClusters returns the hosted Kubernetes clusters in registration order.
func (r *Region) K8sClusters() []*K8sCluster { return r.k8sClusters.list() }

// DatabaseSpec describes a database to add to a region. Port is optional;
// when unset the engine's standard port is used.
type DatabaseSpec struct {
	ID            string
	Type          DatabaseType
	Host          string
	Port          Optional[int]
	Engine        EngineType
	EngineVersion string
	ClassType     string
	DBName        string
	Patch         *DatabasePatch
}

// AddDatabase creates an RDS database in this region.
func (r *Region) AddDatabase(spec DatabaseSpec) (*Database, error) {
	path := r.ref()
	if spec.ID == "" {
		return nil, &SchemaError{Path: path, Field: "id"}
	}
	path = fmt.Sprintf("%s database %s", path, spec.ID)
	if spec.Host == "" {
		return nil, &SchemaError{Path: path, Field: "host"}
	}
	switch spec.Type {
	case DatabaseTypeInstance, DatabaseTypeCluster:
	default:
		return nil, &SchemaError{Path: path, Field: "type", Reason: fmt.Sprintf("type must be instance or cluster, got %q for", spec.Type)}
	}
	if spec.Engine == "" {
		spec.Engine = EnginePostgreSQL
	}
	switch spec.Engine {
	case EnginePostgreSQL, EngineMySQL:
	default:
		return nil, &SchemaError{Path: path, Field: "engine_type", Reason: fmt.Sprintf("engine must be postgresql or mysql, got %q for", spec.Engine)}
	}
	if port, ok := spec.Port.Get(); ok && (port <= 0 || port > 65535) {
		return nil, &SchemaError{Path: path, Field: "port", Reason: fmt.Sprintf("port %d out of range for", port)}
	}

	db := &Database{
		id:            spec.ID,
		region:        r,
		typ:           spec.Type,
		host:          spec.Host,
		port:          spec.Port.Or(spec.Engine.DefaultPort()),
		engine:        spec.Engine,
		engineVersion: spec.EngineVersion,
		classType:     spec.ClassType,
		dbname:        spec.DBName,
	}
	if db.dbname == "" {
		db.dbname = spec.ID
	}
	db.attach(spec.Patch)

	if err := r.databases.add(r.ref(), spec.ID, db); err != nil {
		return nil, err
	}
	return db, nil
}

// Database returns the database registered under id.
func (r *Region) Database(id string) (*Database, error) {
	return r.databases.get(r.ref(), id)
}

// Databases returns the databases in registration order.
func (r *Region) Databases() []*Database { return r.databases.list() }

// ECSCluster is an Amazon ECS cluster.
type ECSCluster struct {
	name     string
	region   *Region
	services registry[*ECSService]
}

func (c *ECSCluster) Name() string    { return c.name }
func (c *ECSCluster) Region() *Region { return c.region }

func (c *ECSCluster) String() string {
	return fmt.Sprintf("ECSCluster(name: %s, %d services)", c.name, c.services.len())
}

func (c *ECSCluster) ref() string { return fmt.Sprintf("ecs cluster %s/%s", c.region.name, c.name) }

// ECSServiceSpec describes an ECS service to add to a cluster.
type ECSServiceSpec struct {
	Name         string
	DesiredCount int
	Patch        *ECSServicePatch
	Properties   Properties
}

// AddService creates an ECS service in this cluster.
func (c *ECSCluster) AddService(spec ECSServiceSpec) (*ECSService, error) {
	if spec.Name == "" {
		return nil, &SchemaError{Path: c.ref(), Field: "name"}
	}
	if spec.DesiredCount < 0 {
		return nil, &SchemaError{Path: c.ref() + " service " + spec.Name, Field: "desired_count", Reason: "negative count for"}
	}
	if spec.Patch != nil && spec.Patch.DesiredCount.Or(0) < 0 {
		return nil, &SchemaError{Path: c.ref() + " service " + spec.Name, Field: "desired_count", Reason: "negative patch count for"}
	}
	svc := &ECSService{
		name:         spec.Name,
		cluster:      c,
		desiredCount: spec.DesiredCount,
		properties:   spec.Properties,
	}
	svc.attach(spec.Patch)
	if err := c.services.add(c.ref(), spec.Name, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// Service returns the ECS service registered under name.
func (c *ECSCluster) Service(name string) (*ECSService, error) {
	return c.services.get(c.ref(), name)
}

// Services returns the services in registration order.
func (c *ECSCluster) Services() []*ECSService { return c.services.list() }

// ECSService is a service running in an ECS cluster.
type ECSService struct {
	Patchable[ECSServicePatch]

	name         string
	cluster      *ECSCluster
	desiredCount int
	properties   Properties
}

func (s *ECSService) Name() string              { return s.name }
func (s *ECSService) Cluster() *ECSCluster      { return s.cluster }
func (s *ECSService) DesiredCount() int         { return s.desiredCount }
func (s *ECSService) Properties() Properties    { return s.properties }
func (s *ECSService) RestartAfterUpgrade() bool { return s.properties.RestartAfterUpgrade }

func (s *ECSService) String() string {
	return fmt.Sprintf("ECSService(name: %s, desired_count: %d, restart_after_upgrade: %t)",
		s.name, s.desiredCount, s.properties.RestartAfterUpgrade)
}

// Database is an Amazon RDS database (instance or cluster).
type Database struct {
	Patchable[DatabasePatch]

	id            string
	region        *Region
	typ           DatabaseType
	host          string
	port          int
	engine        EngineType
	engineVersion string
	classType     string
	dbname        string
}

func (d *Database) ID() string            { return d.id }
func (d *Database) Region() *Region       { return d.region }
func (d *Database) Type() DatabaseType    { return d.typ }
func (d *Database) Host() string          { return d.host }
func (d *Database) Port() int             { return d.port }
func (d *Database) Engine() EngineType    { return d.engine }
func (d *Database) EngineVersion() string { return d.engineVersion }
func (d *Database) ClassType() string     { return d.classType }
func (d *Database) DBName() string        { return d.dbname }

// IsPostgreSQL reports whether the database runs the PostgreSQL engine.
func (d *Database) IsPostgreSQL() bool { return d.engine == EnginePostgreSQL }

// IsMySQL reports whether the database runs the MySQL engine.
func (d *Database) IsMySQL() bool { return d.engine == EngineMySQL }

// IsCluster reports whether the database is an RDS cluster rather than an instance.
func (d *Database) IsCluster() bool { return d.typ == DatabaseTypeCluster }

func (d *Database) String() string {
	return fmt.Sprintf("Database(id: %s, type: %s, host: %s, port: %d, engine_type: %s, engine_version: %s, class_type: %s, dbname: %s)",
		d.id, d.typ, d.host, d.port, d.engine, d.engineVersion, d.classType, d.dbname)
}
