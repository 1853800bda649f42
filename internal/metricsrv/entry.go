// HTTP server exposing metric discovery and querying to other programs only on the local system
package metricsrv

import (
	"bytes"
	"context"
	"encoding/json"
	"fastlog/internal/global"
	"fastlog/internal/logctx"
	"fastlog/internal/metrics"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Sets up HTTP listener configuration for metric querying
func SetupListener(ctx context.Context, port int, search DataSearcher, discover Discoverer) (server *http.Server) {
	if port == 0 {
		port = global.HTTPListenPort
	}

	requestMultiplexer := http.NewServeMux()

	// Metric Discovery Requests
	requestMultiplexer.HandleFunc(global.DiscoveryPath, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		if clientRequest.Method != http.MethodGet {
			serverResponder.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handleDiscovery(ctx, discover, serverResponder, clientRequest)
	})

	// Metric Data Requests
	requestMultiplexer.HandleFunc(global.DataPath+"/", func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		if clientRequest.Method != http.MethodGet {
			serverResponder.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handleData(ctx, search, serverResponder, clientRequest)
	})

	// Server configuration
	server = &http.Server{
		Addr:         global.HTTPListenAddr + ":" + strconv.Itoa(port),
		Handler:      requestMultiplexer,
		ReadTimeout:  global.HTTPReadTimeout,
		WriteTimeout: global.HTTPWriteTimeout,
		IdleTimeout:  global.HTTPIdleTimeout,
		ErrorLog:     log.New(httpLogWriter{ctx: ctx}, "", 0),
	}

	return
}

// Starts the metric HTTP server and waits for requests
func Start(ctx context.Context, server *http.Server) {
	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Metric query server starting on %s (http://%s/)\n",
		server.Addr,
		server.Addr,
	)
	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "Metric query server failed to start: %v\n", err)
	}
}

// Handles metric search requests based on time for data
func handleData(baseCtx context.Context, search DataSearcher, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	rawNamespace := strings.TrimPrefix(clientRequest.URL.Path, global.DataPath+"/")
	var reqNamespace []string
	if rawNamespace != "" {
		reqNamespace = strings.Split(rawNamespace, "/")
	}

	reqName := clientRequest.FormValue("name")

	var err error

	rawStartTime := clientRequest.FormValue("starttime")
	var reqStartTime time.Time
	if rawStartTime == "" {
		// Default start is last minute
		reqStartTime = time.Now().Add(-1 * time.Minute)
	} else if rawStartTime[0] == '-' || rawStartTime[0] == '+' {
		dur, err := time.ParseDuration(rawStartTime)
		if err == nil {
			reqStartTime = time.Now().Add(dur)
		} else {
			// Default start is last minute
			reqStartTime = time.Now().Add(-1 * time.Minute)
		}
	} else {
		reqStartTime, err = time.Parse(time.RFC3339Nano, rawStartTime)
		if err != nil {
			serverResponder.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	rawEndTime := clientRequest.FormValue("endtime")
	var reqEndTime time.Time
	if rawEndTime == "now" || rawEndTime == "" {
		reqEndTime = time.Now() // Default end is now
	} else {
		reqEndTime, err = time.Parse(time.RFC3339Nano, rawEndTime)
		if err != nil {
			serverResponder.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	// Query internal metric registry
	rawResults := search(reqName, reqNamespace, reqStartTime, reqEndTime)

	var results []metrics.JMetric
	for _, rawResult := range rawResults {
		results = append(results, rawResult.Convert())
	}

	if len(results) == 0 {
		jResp(baseCtx, serverResponder, Jerror{Msg: "Search returned no results"})
	} else {
		jResp(baseCtx, serverResponder, results)
	}
}

// Handles metric discovery requests (time-independent)
func handleDiscovery(baseCtx context.Context, discover Discoverer, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	reqName := clientRequest.FormValue("name")
	reqType := metrics.MetricType(clientRequest.FormValue("type"))

	rawNamespace := clientRequest.FormValue("namespace")
	var reqNamespace []string
	if rawNamespace != "" {
		reqNamespace = strings.Split(rawNamespace, "/")
	}

	rawResults := discover(reqName, reqNamespace, reqType)

	var results []metrics.JMetric
	for _, rawResult := range rawResults {
		results = append(results, rawResult.Convert())
	}

	if len(results) == 0 {
		jResp(baseCtx, serverResponder, Jerror{Msg: "Discovery returned no results"})
	} else {
		jResp(baseCtx, serverResponder, results)
	}
}

// Encodes JSON and sends as response body
func jResp(ctx context.Context, serverResponder http.ResponseWriter, content any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(content); err != nil {
		serverResponder.WriteHeader(http.StatusInternalServerError)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "Failed marshaling metric results: %v\n", err)
		return
	}
	serverResponder.Header().Set("Content-Type", "application/json")
	serverResponder.WriteHeader(http.StatusOK)
	serverResponder.Write(buf.Bytes())
}

// Logs HTTP server errors to internal program buffer (via context logger)
func (logWriter httpLogWriter) Write(p []byte) (n int, err error) {
	n = len(p)
	if n == 0 {
		return
	}
	logctx.LogEvent(
		logWriter.ctx,
		global.VerbosityStandard,
		global.ErrorLog,
		"%s\n", strings.TrimSpace(string(p)),
	)
	return
}
