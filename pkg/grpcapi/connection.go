package grpcapi

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/flagforge/ctfmanager/api/proto"
	"github.com/flagforge/ctfmanager/pkg/compose"
)

// connectionInfo derives the per-port reachability info spec.md §4.J
// describes, for every TCP port of every service and VM in doc. It mirrors
// pkg/compose/translate.go's portObjects branching but returns data instead
// of cluster objects, so status queries don't need to re-render or re-apply
// anything.
func connectionInfo(doc *compose.Document, namespace, exposedDomain string) []*proto.ConnectionInfo {
	var out []*proto.ConnectionInfo
	for _, id := range sortedKeys(doc.Services) {
		out = append(out, portsConnectionInfo(id, doc.Services[id].Ports, namespace, exposedDomain)...)
	}
	for _, id := range sortedKeys(doc.VMs) {
		out = append(out, portsConnectionInfo(id, doc.VMs[id].Ports, namespace, exposedDomain)...)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func portsConnectionInfo(serviceID string, ports []compose.Port, namespace, exposedDomain string) []*proto.ConnectionInfo {
	var out []*proto.ConnectionInfo
	for _, p := range ports {
		protocol := strings.ToUpper(p.Protocol)
		if protocol == "" {
			protocol = "TCP"
		}
		if protocol == "UDP" {
			out = append(out, &proto.ConnectionInfo{Service: serviceID, Protocol: "udp"})
			continue
		}

		published := p.Published
		if published == "" {
			published = strconv.Itoa(p.Target)
		}
		host := fmt.Sprintf("%s-%s-%s.%s", serviceID, published, namespace, exposedDomain)

		switch p.AppProtocol {
		case "http":
			out = append(out, &proto.ConnectionInfo{Service: serviceID, Host: host, Port: 443, Protocol: "https"})
		case "ssh":
			if p.XUsername == "" || p.XPassword == "" {
				continue
			}
			out = append(out, &proto.ConnectionInfo{Service: serviceID, Host: exposedDomain, Port: 2222, Protocol: "ssh"})
		default:
			out = append(out, &proto.ConnectionInfo{Service: serviceID, Host: host, Port: 443, Protocol: "tcp_tls"})
		}
	}
	return out
}
