package steps

import (
	"fmt"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/operator"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/topology"
)

const (
	dbInstanceQuery = "'DBInstances[*].{DBInstanceIdentifier:DBInstanceIdentifier,DBInstanceClass:DBInstanceClass," +
		"Engine:Engine,DBInstanceStatus:DBInstanceStatus,DBName:DBName,Endpoint:Endpoint,EngineVersion:EngineVersion}'"
	dbClusterQuery = "'DBClusters[*].{DBClusterIdentifier:DBClusterIdentifier,DBClusterInstanceClass:DBClusterInstanceClass," +
		"Engine:Engine,Status:Status,DatabaseName:DatabaseName,Endpoint:Endpoint,EngineVersion:EngineVersion}'"
)

func databases(op *operator.Operator) []*topology.Database {
	return operator.Unique(op.Databases())
}

func dumpEcho(db *topology.Database) string {
	return fmt.Sprintf("echo \"database id: %s\"", db.ID())
}

// DumpPgstats dumps pg_stat_all_tables of every PostgreSQL database.
type DumpPgstats struct{ base }

func NewDumpPgstats() *DumpPgstats {
	return &DumpPgstats{base{name: "dump-pgstats"}}
}

func (s *DumpPgstats) Eligible(op *operator.Operator) bool {
	for _, db := range op.Databases() {
		if db.IsPostgreSQL() {
			return true
		}
	}
	return false
}

func (s *DumpPgstats) Commands(op *operator.Operator) []Command {
	var cmds []Command
	for _, db := range databases(op) {
		if !db.IsPostgreSQL() {
			continue
		}
		cmds = append(cmds, Command{
			dumpEcho(db),
			fmt.Sprintf("psql -h %s -p %d -d %s -U postgres -W "+
				"-c 'select * from pg_stat_all_tables order by schemaname, relname' "+
				"-o %s-pg_stat-`date +%%Y%%m%%d-%%H%%M%%S`.csv",
				db.Host(), db.Port(), db.DBName(), db.ID()),
		})
	}
	return cmds
}

// DumpMysqlTableStatus dumps "show table status" of every MySQL database.
type DumpMysqlTableStatus struct{ base }

func NewDumpMysqlTableStatus() *DumpMysqlTableStatus {
	return &DumpMysqlTableStatus{base{name: "dump-mysqltablestatus"}}
}

func (s *DumpMysqlTableStatus) Eligible(op *operator.Operator) bool {
	for _, db := range op.Databases() {
		if db.IsMySQL() {
			return true
		}
	}
	return false
}

func (s *DumpMysqlTableStatus) Commands(op *operator.Operator) []Command {
	var cmds []Command
	for _, db := range databases(op) {
		if !db.IsMySQL() {
			continue
		}
		cmds = append(cmds, Command{
			dumpEcho(db),
			fmt.Sprintf("mysql -h %s -p %d -d %s -U root -p -e 'show table status' "+
				"-o %s-tablestatus-`date +%%Y%%m%%d-%%H%%M%%S`.txt",
				db.Host(), db.Port(), db.DBName(), db.ID()),
		})
	}
	return cmds
}

// ModifyDatabaseEngineVersion upgrades databases whose patch sets an engine
// version. Clusters are modified through modify-db-cluster.
type ModifyDatabaseEngineVersion struct{ base }

func NewModifyDatabaseEngineVersion() *ModifyDatabaseEngineVersion {
	return &ModifyDatabaseEngineVersion{base{name: "modify-database-engineversion", sep: "# sleep 2"}}
}

func patchedEngineVersion(db *topology.Database) (string, bool) {
	patch, ok := db.Patch()
	if !ok {
		return "", false
	}
	return patch.EngineVersion.Get()
}

func (s *ModifyDatabaseEngineVersion) Eligible(op *operator.Operator) bool {
	for _, db := range op.Databases() {
		if _, ok := patchedEngineVersion(db); ok {
			return true
		}
	}
	return false
}

func (s *ModifyDatabaseEngineVersion) Commands(op *operator.Operator) []Command {
	var cmds []Command
	for _, db := range databases(op) {
		version, ok := patchedEngineVersion(db)
		if !ok {
			continue
		}
		var line string
		if db.IsCluster() {
			line = fmt.Sprintf("# aws rds modify-db-cluster --region %s --db-cluster-identifier %s --engine-version %s --apply-immediately",
				db.Region().Name(), db.ID(), version)
		} else {
			line = fmt.Sprintf("# aws rds modify-db-instance --region %s --db-instance-identifier %s --engine-version %s --apply-immediately",
				db.Region().Name(), db.ID(), version)
		}
		cmds = append(cmds, Command{line})
	}
	return cmds
}

// ModifyDatabaseClassType changes the instance class of databases whose patch
// sets a class type.
type ModifyDatabaseClassType struct{ base }

func NewModifyDatabaseClassType() *ModifyDatabaseClassType {
	return &ModifyDatabaseClassType{base{name: "modify-database-classtype", sep: "# sleep 2"}}
}

func patchedClassType(db *topology.Database) (string, bool) {
	patch, ok := db.Patch()
	if !ok {
		return "", false
	}
	return patch.ClassType.Get()
}

func (s *ModifyDatabaseClassType) Eligible(op *operator.Operator) bool {
	for _, db := range op.Databases() {
		if _, ok := patchedClassType(db); ok {
			return true
		}
	}
	return false
}

func (s *ModifyDatabaseClassType) Commands(op *operator.Operator) []Command {
	var cmds []Command
	for _, db := range databases(op) {
		class, ok := patchedClassType(db)
		if !ok {
			continue
		}
		cmds = append(cmds, Command{fmt.Sprintf(
			"# aws rds modify-db-instance --region %s --db-instance-identifier %s --db-instance-class %s --apply-immediately",
			db.Region().Name(), db.ID(), class)})
	}
	return cmds
}

// QueryDatabaseStatus describes every database.
type QueryDatabaseStatus struct{ base }

func NewQueryDatabaseStatus() *QueryDatabaseStatus {
	return &QueryDatabaseStatus{base{name: "query-database-status", sep: "sleep 2"}}
}

func (s *QueryDatabaseStatus) Eligible(op *operator.Operator) bool {
	return len(op.Databases()) > 0
}

func (s *QueryDatabaseStatus) Commands(op *operator.Operator) []Command {
	dbs := databases(op)
	cmds := make([]Command, 0, len(dbs))
	for _, db := range dbs {
		var line string
		if db.IsCluster() {
			line = fmt.Sprintf("aws rds describe-db-clusters --region %s --db-cluster-identifier %s --query %s",
				db.Region().Name(), db.ID(), dbClusterQuery)
		} else {
			line = fmt.Sprintf("aws rds describe-db-instances --region %s --db-instance-identifier %s --query %s",
				db.Region().Name(), db.ID(), dbInstanceQuery)
		}
		cmds = append(cmds, Command{line})
	}
	return cmds
}
